package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStoryPath(t *testing.T) {
	createDir := func(t *testing.T, files []string) string {
		dir := t.TempDir()
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("content"), 0o644))
		}
		return dir
	}

	t.Run("Prefers story.yaml", func(t *testing.T) {
		dir := createDir(t, []string{"story.yaml", "story.json", "lobby.md"})
		assert.Equal(t, filepath.Join(dir, "story.yaml"), ResolveStoryPath(dir))
	})

	t.Run("Falls back to story.json", func(t *testing.T) {
		dir := createDir(t, []string{"story.json"})
		assert.Equal(t, filepath.Join(dir, "story.json"), ResolveStoryPath(dir))
	})

	t.Run("Directory of knots", func(t *testing.T) {
		dir := createDir(t, []string{"lobby.md", "globals.md"})
		assert.Equal(t, dir, ResolveStoryPath(dir))
	})

	t.Run("File is kept", func(t *testing.T) {
		dir := createDir(t, []string{"tale.yaml"})
		path := filepath.Join(dir, "tale.yaml")
		assert.Equal(t, path, ResolveStoryPath(path))
	})

	t.Run("Missing path is kept", func(t *testing.T) {
		assert.Equal(t, "nope.yaml", ResolveStoryPath("nope.yaml"))
	})

	t.Run("Empty means working directory", func(t *testing.T) {
		assert.Equal(t, ".", ResolveStoryPath(""))
	})
}
