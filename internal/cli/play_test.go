package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/domain"
)

func TestRunPlay_PersistsVariables(t *testing.T) {
	saves := t.TempDir()
	opts := cli.PlayOptions{
		StoryPath: innStory,
		SaveDir:   saves,
		SaveKey:   "hero",
		Plain:     true,
		NoBanner:  true,
	}

	var out bytes.Buffer
	require.NoError(t, cli.RunPlay(context.Background(), opts, strings.NewReader("1\n"), &out))
	assert.Contains(t, out.String(), "You sleep well.")
	assert.Contains(t, out.String(), ">>> Variables saved.")
	assert.NotContains(t, out.String(), "restored")

	snap, err := file.New(saves).Load(context.Background(), "hero")
	require.NoError(t, err)
	coins, ok := snap.Lookup("coins")
	require.True(t, ok)
	assert.Equal(t, domain.Int(2), coins)

	out.Reset()
	require.NoError(t, cli.RunPlay(context.Background(), opts, strings.NewReader("1\n"), &out))
	assert.Contains(t, out.String(), "Variables restored from 'hero'.")
	assert.Contains(t, out.String(), "You have 2.")

	opts.Fresh = true
	out.Reset()
	require.NoError(t, cli.RunPlay(context.Background(), opts, strings.NewReader("quit\n"), &out))
	assert.Contains(t, out.String(), "You have 3.")
}

func TestRunPlay_Banner(t *testing.T) {
	var out bytes.Buffer
	opts := cli.PlayOptions{StoryPath: innStory, Plain: true}

	require.NoError(t, cli.RunPlay(context.Background(), opts, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "|_|")
	assert.NotContains(t, out.String(), "Variables saved.")
}

func TestRunPlay_MissingStory(t *testing.T) {
	var out bytes.Buffer
	err := cli.RunPlay(context.Background(), cli.PlayOptions{StoryPath: "missing.yaml"}, strings.NewReader(""), &out)
	assert.ErrorContains(t, err, "error initializing parley")
}
