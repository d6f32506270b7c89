package story_test

import (
	"errors"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/ports/tests"
	"github.com/aretw0/parley/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, path string) *story.Story {
	t.Helper()
	s, err := story.LoadFile(path)
	require.NoError(t, err)
	return s
}

func TestStory_InterpreterContract(t *testing.T) {
	for _, path := range []string{"testdata/greeting.yaml", "testdata/market.yaml"} {
		t.Run(path, func(t *testing.T) {
			tests.InterpreterContractTest(t, func(t *testing.T) ports.Interpreter {
				return load(t, path)
			})
		})
	}
}

func TestStory_Greeting(t *testing.T) {
	s := load(t, "testdata/greeting.yaml")
	assert.Equal(t, "Greeting", s.Title())
	assert.True(t, s.KnotExists("Start"))
	assert.True(t, s.StitchExists("Start", "no"))
	assert.False(t, s.StitchExists("Start", "maybe"))

	require.NoError(t, s.JumpTo("Start"))
	text, err := s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{"speaker=Ana::ui"}, s.CurrentTags())
	assert.False(t, s.CanContinue())

	choices := s.CurrentChoices()
	require.Len(t, choices, 2)
	assert.Equal(t, domain.RawChoice{Index: 0, Text: "Yes"}, choices[0])
	assert.Equal(t, domain.RawChoice{Index: 1, Text: "No", Tags: []string{"sad"}}, choices[1])

	_, err = s.Continue()
	assert.ErrorIs(t, err, story.ErrCannotContinue)

	require.NoError(t, s.Choose(1))
	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "Too bad.", text)
	assert.False(t, s.CanContinue())
	assert.Empty(t, s.CurrentChoices())
}

func TestStory_EmptyStartEndsImmediately(t *testing.T) {
	s := load(t, "testdata/greeting.yaml")
	assert.True(t, s.CanContinue())
	text, err := s.Continue()
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.False(t, s.CanContinue())
}

func TestStory_MarketFlow(t *testing.T) {
	s := load(t, "testdata/market.yaml")

	var changes []string
	s.SubscribeVariableChanged(func(name string, v domain.Value) error {
		changes = append(changes, name+"="+v.String())
		return nil
	})

	text, err := s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "Ana arrives at the market with 10 coins.", text)

	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "A merchant waves.", text)
	assert.Equal(t, []string{"met_guard=true"}, changes)

	choices := s.CurrentChoices()
	require.Len(t, choices, 3, "the castle is out of reach")
	assert.Equal(t, "Buy a sword", choices[0].Text)
	assert.Equal(t, "Haggle", choices[1].Text)
	assert.Equal(t, 1, choices[1].Index)
	assert.Equal(t, "Leave", choices[2].Text)

	require.NoError(t, s.Choose(0))
	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "Pleasure doing business. 5 coins left.", text)

	gold, err := s.Global("gold")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(5), gold)

	inv, err := s.Global("inventory")
	require.NoError(t, err)
	list := inv.(domain.List)
	assert.True(t, list.Contains("Items", "sword"))
	assert.False(t, list.Contains("Items", "key"), "silent steps after a line run before it is returned")

	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "You lost your key somewhere.", text)
	assert.False(t, s.CanContinue())
}

func TestStory_ChoiceWithoutDivertResumes(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	require.NoError(t, s.JumpTo("Market"))
	_, err := s.Continue()
	require.NoError(t, err)

	require.NoError(t, s.Choose(1))
	text, err := s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "The merchant sighs. Mood 0.75.", text)

	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "A merchant waves.", text, "diverts back to the market")
}

func TestStory_ChooseErrors(t *testing.T) {
	s := load(t, "testdata/greeting.yaml")
	assert.ErrorIs(t, s.Choose(0), story.ErrNoChoices)

	require.NoError(t, s.JumpTo("Start"))
	_, err := s.Continue()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Choose(2), domain.ErrChoiceIndexOutOfRange)
	assert.ErrorIs(t, s.Choose(-1), domain.ErrChoiceIndexOutOfRange)
	assert.Len(t, s.CurrentChoices(), 2, "a rejected choice keeps the choices")
}

func TestStory_JumpToUnknown(t *testing.T) {
	s := load(t, "testdata/greeting.yaml")
	assert.ErrorIs(t, s.JumpTo("Nowhere"), domain.ErrUnknownKnot)
	assert.ErrorIs(t, s.JumpTo("Start.maybe"), domain.ErrUnknownStitch)
}

func TestStory_ObserverErrorAbortsStep(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	s.SubscribeVariableChanged(func(name string, v domain.Value) error {
		return &domain.TypeMismatchError{Name: name}
	})

	_, err := s.Continue()
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestStory_ResetRestoresDefaults(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	require.NoError(t, s.SetGlobal("gold", domain.Int(99)))
	assert.ErrorIs(t, s.SetGlobal("gold", domain.String("many")), domain.ErrTypeMismatch)

	s.ResetState()
	gold, _ := s.Global("gold")
	assert.Equal(t, domain.Int(10), gold)
}

func TestStory_UnsubscribeOnlyRemovesOwnObserver(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	var first, second int
	unsubFirst := s.SubscribeVariableChanged(func(string, domain.Value) error { first++; return nil })
	s.SubscribeVariableChanged(func(string, domain.Value) error { second++; return nil })
	unsubFirst()

	_, _ = s.Continue()
	_, _ = s.Continue()
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestStory_KnotListing(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	assert.Equal(t, []string{"Market"}, s.Knots())
	assert.Equal(t, []string{"after"}, s.Stitches("Market"))
	assert.Equal(t, []string{"gold", "inventory", "met_guard", "mood", "name"}, s.GlobalNames())
}

func lineByLine(t *testing.T) *story.Story {
	t.Helper()
	def, err := story.Parse([]byte(`
variables: {n: 1, m: 0}
start:
  - text: A
  - text: B
  - set: {m: "m + 1"}
  - set: {n: "n + 1"}
  - text: C
`), story.FormatYAML)
	require.NoError(t, err)
	s, err := story.New(def)
	require.NoError(t, err)
	return s
}

func TestStory_FailedStepRollsBack(t *testing.T) {
	s := lineByLine(t)
	var changes []string
	fail := true
	s.SubscribeVariableChanged(func(name string, v domain.Value) error {
		changes = append(changes, name+"="+v.String())
		if name == "n" && fail {
			return errors.New("rejected")
		}
		return nil
	})

	text, err := s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "A", text)

	_, err = s.Continue()
	require.Error(t, err)
	assert.True(t, s.CanContinue())
	m, _ := s.Global("m")
	assert.Equal(t, domain.Int(0), m, "earlier effects of the failed step are undone")
	assert.Equal(t, []string{"m=1", "n=2", "m=0", "n=1"}, changes)

	fail = false
	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "B", text, "the line is emitted again")
	m, _ = s.Global("m")
	n, _ := s.Global("n")
	assert.Equal(t, domain.Int(1), m)
	assert.Equal(t, domain.Int(2), n)

	text, err = s.Continue()
	require.NoError(t, err)
	assert.Equal(t, "C", text)
}

func TestStory_FailedChoiceKeepsChoices(t *testing.T) {
	s := load(t, "testdata/market.yaml")
	s.SubscribeVariableChanged(func(name string, v domain.Value) error {
		if name == "inventory" {
			return errors.New("rejected")
		}
		return nil
	})
	require.NoError(t, s.JumpTo("Market"))
	_, err := s.Continue()
	require.NoError(t, err)
	before := s.CurrentChoices()

	require.Error(t, s.Choose(0))
	assert.Equal(t, before, s.CurrentChoices())
	gold, _ := s.Global("gold")
	assert.Equal(t, domain.Int(10), gold)
}
