// Package cli wires the workspace engine into a cobra command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"restdeck/internal/backend/sqlite"
	"restdeck/internal/config"
	httpclient "restdeck/internal/protocol/http"
	"restdeck/internal/workspace"
)

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "restdeck",
		Short:         "Restdeck - an API client workspace",
		Long:          "Restdeck manages request collections, environments and history,\nand sends HTTP requests with environment variable substitution.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")

	cmd.AddCommand(NewSendCommand(&configPath))
	cmd.AddCommand(NewCollectionsCommand(&configPath))
	cmd.AddCommand(NewRequestsCommand(&configPath))
	cmd.AddCommand(NewEnvCommand(&configPath))
	cmd.AddCommand(NewHistoryCommand(&configPath))
	cmd.AddCommand(NewImportCommand(&configPath))

	return cmd
}

// openWorkspace builds the full stack: config, sqlite store with the
// HTTP engine behind it, and the workspace state container on top.
func openWorkspace(configPath string) (*workspace.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	httpOpts := []httpclient.Option{
		httpclient.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
	}
	if !cfg.FollowRedirects {
		httpOpts = append(httpOpts, httpclient.WithNoRedirects())
	}

	store, err := sqlite.New(cfg.DatabasePath(),
		sqlite.WithRequester(httpclient.NewClient(httpOpts...)),
		sqlite.WithHistoryLimit(cfg.HistoryLimit),
	)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ws := workspace.New(store,
		workspace.WithLogger(logger),
		workspace.WithSendTimeout(cfg.Timeout),
	)
	cleanup := func() { store.Close() }
	return ws, cleanup, nil
}
