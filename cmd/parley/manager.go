package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/variables"
)

// loadServerConfig reads the environment and lets explicit flags win.
func loadServerConfig(cmd *cobra.Command, args []string) (config.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Server{}, err
	}
	if cmd.Flags().Changed("story") || len(args) > 0 || cfg.Story == "" {
		cfg.Story = storyPath(cmd, args)
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("start"); f != nil && f.Changed {
		cfg.Start = f.Value.String()
	}
	return cfg, nil
}

// openManager builds the Manager shared by serve and mcp: a variable bridge
// persisted to the configured store, restored from it when a snapshot exists.
func openManager(ctx context.Context, cfg config.Server, logger *slog.Logger, hooks domain.LifecycleHooks) (*parley.Manager, io.Closer, error) {
	store, closer, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	mgr, err := parley.New(cli.ResolveStoryPath(cfg.Story),
		parley.WithLogger(logger),
		parley.WithLifecycleHooks(hooks),
		parley.WithVariableBridge(variables.NewBridge(variables.WithLogger(logger))),
		parley.WithSnapshotStore(store, cfg.SnapshotKey),
	)
	if err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("error initializing parley: %w", err)
	}

	switch err := mgr.LoadVariables(ctx); {
	case err == nil:
		logger.Info("Variables restored", "key", cfg.SnapshotKey, "store", cfg.Store)
	case errors.Is(err, domain.ErrSnapshotNotFound):
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("load variables: %w", err)
	}
	return mgr, closer, nil
}
