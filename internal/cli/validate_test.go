package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/testutils"
)

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"broken.yaml": "start:\n  - text: Hi\n  - divert: Nowhere\n",
		"garbled.yaml": "start: [\n",
	})

	tests := []struct {
		name    string
		path    string
		wantErr bool
		output  string
	}{
		{"valid file", innStory, false, "is valid (1 knots, 1 stitches, 2 variables)"},
		{"valid directory", "../../testdata/inn", false, "is valid (1 knots, 1 stitches, 2 variables)"},
		{"unknown divert", filepath.Join(dir, "broken.yaml"), true, `divert to unknown address "Nowhere"`},
		{"parse error", filepath.Join(dir, "garbled.yaml"), true, "parse yaml"},
		{"missing", filepath.Join(dir, "missing.yaml"), true, "open story"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := cli.RunValidate(context.Background(), cli.ValidateOptions{StoryPath: tt.path}, &out)
			if tt.wantErr {
				assert.ErrorIs(t, err, cli.ErrInvalidStory)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.output)
		})
	}
}

func TestRunValidate_WatchNeedsDirectory(t *testing.T) {
	var out bytes.Buffer
	err := cli.RunValidate(context.Background(), cli.ValidateOptions{StoryPath: innStory, Watch: true}, &out)
	assert.ErrorContains(t, err, "--watch needs a story directory")
}

func TestRunValidate_WatchStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"globals.md": "---\ntype: globals\nstart: Gate\n---\n",
		"gate.md":    "---\nknot: Gate\n---\nHalt.\n",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, cli.RunValidate(ctx, cli.ValidateOptions{StoryPath: dir, Watch: true}, &out))
	assert.Contains(t, out.String(), "is valid (1 knots")
	assert.Contains(t, out.String(), ">>> Waiting for changes...")
}
