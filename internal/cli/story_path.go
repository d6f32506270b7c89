package cli

import (
	"os"
	"path/filepath"
)

var storyFiles = []string{"story.yaml", "story.yml", "story.json"}

// ResolveStoryPath picks the story to load for path.
// An empty path means the working directory. A directory holding a
// story.yaml, story.yml or story.json file resolves to that file; any other
// directory is loaded as one markdown document per knot.
func ResolveStoryPath(path string) string {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path
	}
	for _, name := range storyFiles {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}
