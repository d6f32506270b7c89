package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/testutils"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/story"
)

var tavern = map[string]string{
	"globals.md": `---
type: globals
title: Tavern
start: Door
variables:
  coins: 2
  drunk: false
---
`,
	"door.md": `---
knot: Door
tags: ["speaker=narrator"]
choices:
  - text: Enter
    divert: Bar
  - text: Leave
    divert: END
---
The tavern door creaks.
Smoke curls from the chimney.
`,
	"bar.md": `---
knot: Bar
flow:
  - set:
      coins: coins - 1
stitches:
  - name: later
    flow:
      - text: The bar is empty now.
---
You have {coins} coins left.
`,
}

func loadTavern(t *testing.T) *story.Definition {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, tavern)

	loader := New(loam.NewTypedRepository[DocumentMetadata](repo))
	def, err := loader.Load(context.Background())
	require.NoError(t, err)
	return def
}

func TestLoader_Load_AssemblesDefinition(t *testing.T) {
	def := loadTavern(t)

	assert.Equal(t, "Tavern", def.Title)
	require.Len(t, def.Start, 1)
	assert.Equal(t, "Door", def.Start[0].Divert)
	assert.Contains(t, def.Variables, "coins")

	require.Len(t, def.Knots, 2)
	assert.Equal(t, "Bar", def.Knots[0].Name)
	assert.Equal(t, "Door", def.Knots[1].Name)

	door := def.Knots[1]
	require.Len(t, door.Flow, 3)
	assert.Equal(t, "The tavern door creaks.", door.Flow[0].Text)
	assert.Equal(t, []string{"speaker=narrator"}, door.Flow[0].Tags)
	assert.Empty(t, door.Flow[1].Tags)
	assert.Len(t, door.Flow[2].Choices, 2)

	bar := def.Knots[0]
	require.Len(t, bar.Flow, 2)
	assert.Equal(t, "coins - 1", bar.Flow[0].Set["coins"])
	require.Len(t, bar.Stitches, 1)
	assert.Equal(t, "later", bar.Stitches[0].Name)
}

func TestLoader_Load_PlaysThroughStory(t *testing.T) {
	s, err := story.New(loadTavern(t))
	require.NoError(t, err)

	line, err := s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "The tavern door creaks.", line)

	_, err = s.Continue()
	require.NoError(t, err)
	require.Len(t, s.CurrentChoices(), 2)

	require.NoError(t, s.Choose(0))
	line, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "You have 1 coins left.", line)

	coins, err := s.Global("coins")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(1), coins)
}

func TestLoader_Load_DetectsCollisions(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, map[string]string{
		"a.md": "---\nknot: Same\n---\nOne\n",
		"b.md": "---\nknot: Same\n---\nTwo\n",
	})

	_, err := New(loam.NewTypedRepository[DocumentMetadata](repo)).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "Same")
}

func TestLoader_Load_RejectsUnknownType(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, map[string]string{
		"odd.md": "---\ntype: tool\n---\nbody\n",
	})

	_, err := New(loam.NewTypedRepository[DocumentMetadata](repo)).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestLoader_Load_KnotNameDefaultsToFileName(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, map[string]string{
		"intro.md": "Hello there.\n",
	})

	def, err := New(loam.NewTypedRepository[DocumentMetadata](repo)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, def.Knots, 1)
	assert.Equal(t, "intro", def.Knots[0].Name)
	assert.Empty(t, def.Start)
}

func TestLoadDir(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, tavern)

	def, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, def.Knots, 2)
}
