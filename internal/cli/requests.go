package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"restdeck/internal/core"
	"restdeck/internal/workspace"
)

// NewRequestsCommand creates the requests command group.
func NewRequestsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Manage saved requests",
	}

	cmd.AddCommand(newRequestsListCommand(configPath))
	cmd.AddCommand(newRequestsRenameCommand(configPath))
	cmd.AddCommand(newRequestsMoveCommand(configPath))
	cmd.AddCommand(newRequestsDeleteCommand(configPath))

	return cmd
}

func newRequestsListCommand(configPath *string) *cobra.Command {
	var collectionID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved requests",
		Long:  "List the requests in a collection, or the requests outside any\ncollection when no --collection is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			var target *string
			if collectionID != "" {
				target = &collectionID
			}
			requests, err := ws.LoadRequests(cmd.Context(), target)
			if err != nil {
				return err
			}
			if len(requests) == 0 {
				dim.Fprintln(cmd.OutOrStdout(), "No requests")
				return nil
			}
			for _, req := range requests {
				printRequestLine(cmd, req)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collectionID, "collection", "c", "", "Collection id")
	return cmd
}

func printRequestLine(cmd *cobra.Command, req core.Request) {
	fmt.Fprintf(cmd.OutOrStdout(), "%-7s %-30s %s  %s\n",
		req.Method, req.Name, req.URL, dim.Sprint(req.ID))
}

func newRequestsRenameCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a saved request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			// Prime the caches from the backend before acting; the engine
			// treats ids missing from the cache as stale no-ops.
			if err := primeCaches(cmd, ws); err != nil {
				return err
			}
			return ws.RenameRequest(cmd.Context(), args[0], args[1])
		},
	}
}

func newRequestsMoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mv ID TARGET",
		Short: "Move a request into a collection, or to root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := primeCaches(cmd, ws); err != nil {
				return err
			}
			return ws.MoveRequest(cmd.Context(), args[0], args[1])
		},
	}
}

func newRequestsDeleteCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a saved request",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := primeCaches(cmd, ws); err != nil {
				return err
			}
			return ws.DeleteRequest(cmd.Context(), args[0])
		},
	}
}

// primeCaches loads the collection list and every request bucket so a
// following engine action sees the request it targets. The engine
// treats ids missing from the cache as stale no-ops.
func primeCaches(cmd *cobra.Command, ws *workspace.Store) error {
	ctx := cmd.Context()
	if err := ws.RefreshCollections(ctx); err != nil {
		return err
	}
	if _, err := ws.LoadRequests(ctx, nil); err != nil {
		return err
	}
	for _, c := range ws.Collections() {
		if _, err := ws.LoadRequests(ctx, &c.ID); err != nil {
			return err
		}
	}
	return nil
}
