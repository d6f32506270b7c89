package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/variables"
)

// PlayOptions configures the play command.
type PlayOptions struct {
	StoryPath string
	Start     string
	// SaveDir enables persistence: variables are loaded from SaveKey before
	// playing and saved back once the dialogue is over.
	SaveDir  string
	SaveKey  string
	Fresh    bool
	Plain    bool
	NoBanner bool
	Logger   *slog.Logger
}

// newManager builds a Manager with a variable bridge and, when configured, a file store.
func newManager(opts PlayOptions) (*parley.Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	managerOpts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithVariableBridge(variables.NewBridge(variables.WithLogger(logger))),
		parley.WithLifecycleHooks(observability.LoggingHooks(logger)),
	}
	if opts.SaveDir != "" {
		key := opts.SaveKey
		if key == "" {
			key = "default"
		}
		managerOpts = append(managerOpts, parley.WithSnapshotStore(file.New(opts.SaveDir), key))
	}

	mgr, err := parley.New(ResolveStoryPath(opts.StoryPath), managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing parley: %w", err)
	}
	return mgr, nil
}

// RunPlay plays a story interactively.
func RunPlay(ctx context.Context, opts PlayOptions, in io.Reader, out io.Writer) error {
	mgr, err := newManager(opts)
	if err != nil {
		return err
	}

	persist := opts.SaveDir != ""
	if persist && !opts.Fresh {
		switch err := mgr.LoadVariables(ctx); {
		case err == nil:
			printSystemMessage(out, "Variables restored from '%s'.", opts.SaveKey)
		case errors.Is(err, domain.ErrSnapshotNotFound):
		default:
			return fmt.Errorf("load variables: %w", err)
		}
	}

	renderer, err := tui.NewRenderer(opts.Plain)
	if err != nil {
		return err
	}
	if !opts.NoBanner {
		tui.PrintBanner(out, parley.Version)
	}

	runErr := NewPlayer(mgr, in, out, renderer).Run(ctx, opts.Start)
	if runErr != nil && !isInterrupted(runErr) {
		return runErr
	}

	if persist {
		if err := mgr.SaveVariables(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("save variables: %w", err)
		}
		printSystemMessage(out, "Variables saved.")
	}
	if runErr != nil {
		printSystemMessage(out, "Interrupted.")
	}
	return handleExecutionError(runErr)
}
