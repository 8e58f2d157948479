package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show sent request history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := ws.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				dim.Fprintln(cmd.OutOrStdout(), "No history")
				return nil
			}
			for _, entry := range entries {
				status := dim.Sprint("-")
				if entry.Response != nil {
					status = statusStyle(entry.Response.Status).Sprintf("%d", entry.Response.Status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s %-40s %s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"),
					entry.Request.Method, entry.Request.URL, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			return ws.ClearHistory(cmd.Context())
		},
	})

	return cmd
}
