package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestController_EndToEnd(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)

	require.NoError(t, c.Begin("Start"))
	assert.Equal(t, domain.StateActive, c.State())

	line, ok := c.Line()
	require.True(t, ok)
	assert.Equal(t, "Hello", line.Text)
	assert.Equal(t, domain.CueChoice, line.Cue)
	require.Len(t, line.Choices, 2)
	assert.Equal(t, 0, line.Choices[0].Index)
	assert.Equal(t, "Yes", line.Choices[0].Text)
	assert.Equal(t, 1, line.Choices[1].Index)
	assert.Equal(t, "No", line.Choices[1].Text)
	assert.Equal(t, "sad", line.Choices[1].Tags[0].Label)

	tag, ok := line.Tag("speaker")
	require.True(t, ok)
	assert.Equal(t, []string{"Ana"}, tag.Parameters)
	assert.Equal(t, "ui", tag.Scope)

	require.NoError(t, c.SelectChoice(1))
	line, _ = c.Line()
	assert.Equal(t, "Too bad.", line.Text)
	assert.Equal(t, domain.CueEndReached, line.Cue)
	assert.Equal(t, domain.StateEnded, c.State())

	require.NoError(t, c.End())
	assert.Equal(t, domain.StateIdle, c.State())
	assert.False(t, c.InProgress())
	assert.Equal(t, domain.CueNone, c.Cue())
	_, ok = c.Line()
	assert.False(t, ok)
}

func TestController_BeginAtStartOfStory(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)

	require.NoError(t, c.Begin(""))
	assert.Equal(t, []string{"reset", "continue"}, interp.calls, "no jump without an address")

	line, _ := c.Line()
	assert.Equal(t, "Once upon a time.", line.Text)
	assert.Equal(t, domain.CueCanContinue, line.Cue)

	require.NoError(t, c.Advance())
	line, _ = c.Line()
	assert.Equal(t, "The end.", line.Text)
	assert.Equal(t, domain.CueEndReached, line.Cue)

	err := c.Advance()
	assert.ErrorIs(t, err, domain.ErrCannotContinue)
}

func TestController_BeginWhileActive(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)
	require.NoError(t, c.Begin("Start"))
	before, _ := c.Line()
	session, _ := c.Session()
	calls := len(interp.calls)

	for _, addr := range []string{"", "Start", "Nowhere"} {
		err := c.Begin(addr)
		assert.ErrorIs(t, err, domain.ErrAlreadyInProgress, addr)
	}

	after, _ := c.Line()
	assert.Equal(t, before, after)
	again, _ := c.Session()
	assert.Equal(t, session, again)
	assert.Len(t, interp.calls, calls, "interpreter untouched")
}

func TestController_BeginInvalidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want error
	}{
		{"Nowhere", domain.ErrUnknownKnot},
		{"Start.nowhere", domain.ErrUnknownStitch},
		{"Start.again.more", domain.ErrMalformedAddress},
		{"  ", domain.ErrEmptyAddress},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			interp := newGreetingStory()
			c := runtime.NewController(interp)

			err := c.Begin(tt.addr)
			assert.ErrorIs(t, err, domain.ErrInvalidAddress)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.StateIdle, c.State())
			assert.Empty(t, interp.calls, "interpreter must not be touched")
		})
	}
}

func TestController_BeginAtStitch(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp, runtime.WithSessionIDGenerator(func() string { return "s-1" }))

	require.NoError(t, c.Begin("Start.again"))
	assert.Equal(t, []string{"reset", "jump:Start.again", "continue"}, interp.calls)

	session, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, "s-1", session.ID)
	assert.Equal(t, "Start.again", session.Address)
	assert.False(t, session.StartedAt.IsZero())
}

func TestController_SelectChoice(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)
	require.NoError(t, c.Begin("Start"))
	before, _ := c.Line()

	for _, idx := range []int{-1, 2, 7} {
		err := c.SelectChoice(idx)
		assert.ErrorIs(t, err, domain.ErrChoiceIndexOutOfRange)
		var choiceErr *domain.ChoiceError
		require.ErrorAs(t, err, &choiceErr)
		assert.Equal(t, []int{0, 1}, choiceErr.Available)

		after, _ := c.Line()
		assert.Equal(t, before, after, "state unchanged on rejected choice")
		assert.Equal(t, domain.CueChoice, c.Cue())
	}

	require.NoError(t, c.SelectChoice(0))
	line, _ := c.Line()
	assert.Equal(t, "Great!", line.Text)
	assert.Equal(t, domain.CueCanContinue, line.Cue)

	assert.ErrorIs(t, c.SelectChoice(0), domain.ErrNotAwaitingChoice)
	require.NoError(t, c.Advance())
	line, _ = c.Line()
	assert.Equal(t, "Again?", line.Text)
	assert.ErrorIs(t, c.Advance(), domain.ErrCannotContinue)
}

func TestController_IdleOperations(t *testing.T) {
	c := runtime.NewController(newGreetingStory())

	assert.ErrorIs(t, c.Advance(), domain.ErrNoSessionInProgress)
	assert.ErrorIs(t, c.SelectChoice(0), domain.ErrNoSessionInProgress)
	assert.ErrorIs(t, c.End(), domain.ErrNoSessionInProgress)
	_, ok := c.Session()
	assert.False(t, ok)
}

func TestController_InterpreterErrorsKeepLine(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)
	require.NoError(t, c.Begin(""))
	before, _ := c.Line()

	boom := errors.New("boom")
	interp.continueErr = boom
	err := c.Advance()
	assert.ErrorIs(t, err, boom)

	after, _ := c.Line()
	assert.Equal(t, before, after)
	assert.True(t, c.InProgress())
}

func TestController_MalformedTagIsUnexpectedState(t *testing.T) {
	interp := newGreetingStory()
	interp.lines["Intro"] = fakeLine{text: "Broken", tags: []string{"=oops"}}
	c := runtime.NewController(interp)

	err := c.Begin("")
	assert.ErrorIs(t, err, domain.ErrMalformedTag)
	assert.Equal(t, domain.ClassUnexpectedState, domain.Classify(err))
	assert.False(t, c.InProgress())
}

func TestController_LifecycleHooks(t *testing.T) {
	var events []string
	var states []domain.SessionState
	var c *runtime.Controller

	hooks := domain.LifecycleHooks{
		OnSessionStart: func(e *domain.SessionEvent) {
			events = append(events, "start")
			states = append(states, c.State())
		},
		OnLine: func(e *domain.LineEvent) {
			events = append(events, "line:"+e.Line.Text)
		},
		OnChoiceSelected: func(e *domain.ChoiceEvent) {
			events = append(events, "choice:"+e.Choice.Text)
		},
		OnSessionEnd: func(e *domain.SessionEvent) {
			events = append(events, "end")
			states = append(states, c.State())
		},
	}
	c = runtime.NewController(newGreetingStory(), runtime.WithLifecycleHooks(hooks))

	require.NoError(t, c.Begin("Start"))
	require.NoError(t, c.SelectChoice(1))
	require.NoError(t, c.End())

	assert.Equal(t, []string{"start", "line:Hello", "choice:No", "line:Too bad.", "end"}, events)
	assert.Equal(t, []domain.SessionState{domain.StateActive, domain.StateIdle}, states,
		"hooks observe the state after the transition")
}

func TestController_BridgeLifecycle(t *testing.T) {
	interp := newGreetingStory()
	bridge := variables.NewBridge()
	require.NoError(t, bridge.InitializeFrom(interp))
	require.NoError(t, bridge.Set("gold", domain.Int(25)))

	c := runtime.NewController(interp, runtime.WithBridge(bridge))
	require.NoError(t, c.Begin("Start"))

	assert.Equal(t, domain.Int(25), interp.globals["gold"], "bridge values are pushed before the first line")
	assert.Equal(t, []string{"reset", "jump:Start", "set:gold", "continue"}, interp.calls)

	_, err := bridge.Export()
	assert.ErrorIs(t, err, domain.ErrTracking)

	require.NoError(t, interp.change("gold", domain.Int(30)))
	require.NoError(t, c.End())

	snap, err := bridge.Export()
	require.NoError(t, err)
	v, ok := snap.Lookup("gold")
	require.True(t, ok)
	assert.Equal(t, domain.Int(30), v)
}

type mockBridge struct {
	mock.Mock
}

func (m *mockBridge) Attach(sessionID string, table ports.VariableTable) error {
	return m.Called(sessionID, table).Error(0)
}

func (m *mockBridge) Detach(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func TestController_BeginRollsBackBridge(t *testing.T) {
	interp := newGreetingStory()
	interp.continueErr = errors.New("story crashed")

	bridge := new(mockBridge)
	bridge.On("Attach", "s-1", mock.Anything).Return(nil)
	bridge.On("Detach", "s-1").Return(nil)

	c := runtime.NewController(interp,
		runtime.WithBridge(bridge),
		runtime.WithSessionIDGenerator(func() string { return "s-1" }),
	)

	err := c.Begin("")
	assert.Error(t, err)
	assert.Equal(t, domain.StateIdle, c.State())
	bridge.AssertExpectations(t)
}

func TestController_BeginAttachFailure(t *testing.T) {
	bridge := new(mockBridge)
	bridge.On("Attach", mock.Anything, mock.Anything).Return(domain.ErrNotInitialized)

	c := runtime.NewController(newGreetingStory(), runtime.WithBridge(bridge))
	err := c.Begin("")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.False(t, c.InProgress())
	bridge.AssertNotCalled(t, "Detach", mock.Anything)
}

func TestController_ObserverErrorSurfaces(t *testing.T) {
	interp := newGreetingStory()
	bridge := variables.NewBridge()
	require.NoError(t, bridge.InitializeFrom(interp))

	c := runtime.NewController(interp, runtime.WithBridge(bridge))
	require.NoError(t, c.Begin(""))

	err := interp.change("gold", domain.String("lots"))
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestController_FailedStepAfterChoiceCanBeRetried(t *testing.T) {
	interp := newGreetingStory()
	c := runtime.NewController(interp)
	require.NoError(t, c.Begin("Start"))

	boom := errors.New("boom")
	interp.continueErr = boom
	err := c.SelectChoice(0)
	assert.ErrorIs(t, err, boom)

	line, ok := c.Line()
	require.True(t, ok)
	assert.Equal(t, "Hello", line.Text)
	assert.Empty(t, line.Choices, "committed choices are no longer offered")
	assert.Equal(t, domain.CueCanContinue, line.Cue)
	assert.ErrorIs(t, c.SelectChoice(1), domain.ErrNotAwaitingChoice)

	interp.continueErr = nil
	require.NoError(t, c.Advance())
	line, _ = c.Line()
	assert.Equal(t, "Great!", line.Text)
}

func TestController_InterpreterAssignedIndices(t *testing.T) {
	interp := newGreetingStory()
	start := interp.lines["Start"]
	start.indices = []int{3, 5}
	interp.lines["Start"] = start
	c := runtime.NewController(interp)
	require.NoError(t, c.Begin("Start"))

	before, _ := c.Line()
	assert.Equal(t, []int{3, 5}, before.ChoiceIndices())

	for _, idx := range []int{0, 1, 4} {
		err := c.SelectChoice(idx)
		var choiceErr *domain.ChoiceError
		require.ErrorAs(t, err, &choiceErr)
		assert.ErrorIs(t, err, domain.ErrChoiceIndexOutOfRange)
		assert.Equal(t, []int{3, 5}, choiceErr.Available)
		after, _ := c.Line()
		assert.Equal(t, before, after)
	}

	require.NoError(t, c.SelectChoice(5))
	assert.Contains(t, interp.calls, "choose:5")
	line, _ := c.Line()
	assert.Equal(t, "Too bad.", line.Text)
}
