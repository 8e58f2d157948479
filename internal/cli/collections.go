package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restdeck/internal/core"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage request collections",
	}

	cmd.AddCommand(newCollectionsListCommand(configPath))
	cmd.AddCommand(newCollectionsCreateCommand(configPath))
	cmd.AddCommand(newCollectionsRenameCommand(configPath))
	cmd.AddCommand(newCollectionsDeleteCommand(configPath))
	cmd.AddCommand(newCollectionsMoveCommand(configPath))
	cmd.AddCommand(newCollectionsAuthCommand(configPath))
	cmd.AddCommand(newCollectionsExportCommand(configPath))

	return cmd
}

func newCollectionsListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshCollections(cmd.Context()); err != nil {
				return err
			}
			if len(ws.Collections()) == 0 {
				dim.Fprintln(cmd.OutOrStdout(), "No collections")
				return nil
			}
			printCollectionTree(cmd.OutOrStdout(), ws, nil, "")
			return nil
		},
	}
}

func newCollectionsCreateCommand(configPath *string) *cobra.Command {
	var description, parent string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			collection, err := ws.CreateCollection(cmd.Context(), args[0], description, parentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q  %s\n", collection.Name, dim.Sprint(collection.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Collection description")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent collection id")
	return cmd
}

func newCollectionsRenameCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshCollections(cmd.Context()); err != nil {
				return err
			}
			return ws.RenameCollection(cmd.Context(), args[0], args[1])
		},
	}
}

func newCollectionsDeleteCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a collection and everything under it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshCollections(cmd.Context()); err != nil {
				return err
			}
			return ws.DeleteCollection(cmd.Context(), args[0])
		},
	}
}

func newCollectionsMoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mv ID TARGET",
		Short: "Move a collection under another, or to root",
		Long:  "Move a collection under the collection TARGET. Use the literal\ntarget \"root\" to move it to the top level.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshCollections(cmd.Context()); err != nil {
				return err
			}
			return ws.MoveCollection(cmd.Context(), args[0], args[1])
		},
	}
}

func newCollectionsAuthCommand(configPath *string) *cobra.Command {
	var bearer, username, password string
	var clear bool

	cmd := &cobra.Command{
		Use:   "auth ID",
		Short: "Set or clear a collection's auth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			var auth *core.AuthConfig
			switch {
			case clear:
			case bearer != "":
				auth = core.NewBearerAuth(bearer)
			case username != "":
				auth = core.NewBasicAuth(username, password)
			default:
				return fmt.Errorf("specify --bearer, --username/--password, or --clear")
			}

			if err := ws.RefreshCollections(cmd.Context()); err != nil {
				return err
			}
			if err := ws.SetCollectionAuth(cmd.Context(), args[0], auth); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&bearer, "bearer", "", "Bearer token")
	cmd.Flags().StringVar(&username, "username", "", "Basic auth username")
	cmd.Flags().StringVar(&password, "password", "", "Basic auth password")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the auth configuration")
	return cmd
}

func newCollectionsExportCommand(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a collection and its requests as a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := ws.ExportCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return os.WriteFile(output, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the bundle to a file")
	return cmd
}
