package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/parley"
	loamAdapter "github.com/aretw0/parley/pkg/adapters/loam"
	"github.com/aretw0/parley/pkg/story"
)

// ErrInvalidStory is returned by RunValidate when the story has problems.
var ErrInvalidStory = errors.New("story is invalid")

// ValidateOptions configures the validate command.
type ValidateOptions struct {
	StoryPath string
	// Watch re-validates a story directory every time one of its documents changes.
	Watch  bool
	Logger *slog.Logger
}

// RunValidate checks a story and reports its problems to out.
func RunValidate(ctx context.Context, opts ValidateOptions, out io.Writer) error {
	path := ResolveStoryPath(opts.StoryPath)
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if !opts.Watch {
		return validateOnce(ctx, path, out)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("open story: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--watch needs a story directory, got file %q", path)
	}

	loader, err := loamAdapter.Open(path)
	if err != nil {
		return err
	}
	events, err := loader.Watch(ctx)
	if err != nil {
		return err
	}

	logger.Info("Starting watcher", "path", path)
	_ = validateOnce(ctx, path, out)
	printSystemMessage(out, "Waiting for changes...")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			printSystemMessage(out, "Change detected in '%s'.", id)
			// Editors often write in several steps.
			time.Sleep(100 * time.Millisecond)
			if err := validateOnce(ctx, path, out); err != nil {
				logger.Debug("Validation failed", "err", err)
			}
		}
	}
}

func validateOnce(ctx context.Context, path string, out io.Writer) error {
	def, err := parley.LoadDefinition(ctx, path)
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return fmt.Errorf("%w: %v", ErrInvalidStory, err)
	}

	if err := story.Validate(def); err != nil {
		problems := story.Problems(err)
		fmt.Fprintf(out, "✗ %d problem(s) in %s\n", len(problems), path)
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("%w: %v", ErrInvalidStory, err)
	}

	stitches := 0
	for _, k := range def.Knots {
		stitches += len(k.Stitches)
	}
	fmt.Fprintf(out, "✓ %s is valid (%d knots, %d stitches, %d variables)\n",
		path, len(def.Knots), stitches, len(def.Variables))
	return nil
}
