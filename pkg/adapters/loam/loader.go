package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/parley/pkg/story"
)

// Loader adapts a Loam repository of markdown documents into a story Definition.
//
// Each document is a knot: its body lines become text steps and its frontmatter
// adds tags, choices, stitches and a closing divert. A single document with
// `type: globals` declares the title, start address, variables and lists.
type Loader struct {
	Repo *loam.TypedRepository[DocumentMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DocumentMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir and wraps it.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numbers as json.Number across markdown and JSON documents.
	// ReadOnly avoids Loam's sandbox behavior; stories are never written back.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[DocumentMetadata](repo)), nil
}

// LoadDir opens dir and loads the story it holds.
func LoadDir(ctx context.Context, dir string) (*story.Definition, error) {
	l, err := Open(dir)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx)
}

// Load reads every document and assembles the Definition.
func (l *Loader) Load(ctx context.Context) (*story.Definition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	raw := map[string]any{}
	seen := make(map[string]string)
	knots := make([]map[string]any, 0, len(docs))
	globalsPath := ""

	for _, doc := range docs {
		meta := doc.Data
		switch meta.Type {
		case TypeGlobals:
			if globalsPath != "" {
				return nil, fmt.Errorf("collision detected: globals defined in both '%s' and '%s'", globalsPath, doc.ID)
			}
			globalsPath = doc.ID
			applyGlobals(raw, meta)
		case "", TypeKnot:
			name := meta.Knot
			if name == "" {
				name = trimExtension(doc.ID)
			}
			if existingPath, ok := seen[name]; ok {
				return nil, fmt.Errorf("collision detected: knot '%s' is defined in both '%s' and '%s'", name, existingPath, doc.ID)
			}
			seen[name] = doc.ID
			knots = append(knots, buildKnot(name, meta, doc.Content))
		default:
			return nil, fmt.Errorf("document '%s': unknown type %q", doc.ID, meta.Type)
		}
	}

	sort.Slice(knots, func(i, j int) bool {
		return knots[i]["name"].(string) < knots[j]["name"].(string)
	})
	list := make([]any, len(knots))
	for i, k := range knots {
		list[i] = k
	}
	raw["knots"] = list

	def, err := story.Decode(raw)
	if err != nil {
		return nil, err
	}
	return def, nil
}

func applyGlobals(raw map[string]any, meta DocumentMetadata) {
	if meta.Title != "" {
		raw["title"] = meta.Title
	}
	if meta.Start != "" {
		raw["start"] = []any{map[string]any{"divert": meta.Start}}
	}
	if len(meta.Variables) > 0 {
		raw["variables"] = meta.Variables
	}
	if len(meta.Lists) > 0 {
		raw["lists"] = meta.Lists
	}
}

func buildKnot(name string, meta DocumentMetadata, body string) map[string]any {
	flow := append([]any(nil), meta.Flow...)
	tagged := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		step := map[string]any{"text": line}
		if !tagged && len(meta.Tags) > 0 {
			step["tags"] = meta.Tags
			tagged = true
		}
		flow = append(flow, step)
	}
	if len(meta.Choices) > 0 {
		flow = append(flow, map[string]any{"choices": meta.Choices})
	}
	if meta.Divert != "" {
		flow = append(flow, map[string]any{"divert": meta.Divert})
	}

	knot := map[string]any{"name": name}
	if len(flow) > 0 {
		knot["flow"] = flow
	}
	if len(meta.Stitches) > 0 {
		knot["stitches"] = meta.Stitches
	}
	return knot
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext == ".md" || ext == ".json" || ext == ".yaml" || ext == ".yml" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch reports the ID of every document that changes under the repository.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
