package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a collection bundle, Postman export or OpenAPI document",
		Long:  "Import a collection from a file. The format is detected\nautomatically: exported bundles, Postman collection exports (v2.x) and\nOpenAPI 3.x documents (JSON or YAML) are supported. All records get\nfresh identifiers, so importing never collides with existing records.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}

			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			collection, err := ws.ImportCollection(cmd.Context(), string(data))
			if err != nil {
				return err
			}

			requests, _ := ws.Requests(&collection.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q with %d requests  %s\n",
				collection.Name, len(requests), dim.Sprint(collection.ID))
			return nil
		},
	}
}
