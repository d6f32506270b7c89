package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/parley/pkg/address"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/google/uuid"
)

// Bridge is the part of the variable bridge the controller drives.
type Bridge interface {
	Attach(sessionID string, table ports.VariableTable) error
	Detach(sessionID string) error
}

// Controller is the session state machine that sequences interpreter calls into lines and choices.
// It owns the interpreter for the duration of a session and holds no locks.
type Controller struct {
	interp ports.Interpreter
	bridge Bridge
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	newID  func() string
	now    func() time.Time

	live    bool
	session domain.Session
	line    domain.DialogueLine
}

// ControllerOption defines a functional option for configuring the Controller.
type ControllerOption func(*Controller)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ControllerOption {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the controller.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBridge keeps bridge attached to the interpreter while a session is live.
func WithBridge(bridge Bridge) ControllerOption {
	return func(c *Controller) {
		c.bridge = bridge
	}
}

// WithSessionIDGenerator overrides the uuid-based session id generator.
func WithSessionIDGenerator(gen func() string) ControllerOption {
	return func(c *Controller) {
		c.newID = gen
	}
}

// WithClock overrides the time source used for Session.StartedAt.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates an idle controller driving interp.
func NewController(interp ports.Interpreter, opts ...ControllerOption) *Controller {
	c := &Controller{
		interp: interp,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts a session at addr, or at the start of the story when addr is empty.
// Nothing is touched when the address does not resolve.
func (c *Controller) Begin(addr string) error {
	if c.live {
		return domain.ErrAlreadyInProgress
	}

	var target string
	if addr != "" {
		resolved, err := address.Resolve(c.interp, addr)
		if err != nil {
			return err
		}
		target = resolved
	}

	c.interp.ResetState()
	if target != "" {
		if err := c.interp.JumpTo(target); err != nil {
			return fmt.Errorf("begin: jump to %q: %w", target, err)
		}
	}

	session := domain.Session{ID: c.newID(), Address: target, StartedAt: c.now()}
	if c.bridge != nil {
		if err := c.bridge.Attach(session.ID, c.interp); err != nil {
			return fmt.Errorf("begin: %w", err)
		}
	}

	line, err := c.step()
	if err != nil {
		if c.bridge != nil {
			if detachErr := c.bridge.Detach(session.ID); detachErr != nil {
				c.logger.Error("failed to detach variables after aborted begin", "session_id", session.ID, "error", detachErr)
			}
		}
		return fmt.Errorf("begin: %w", err)
	}

	c.live = true
	c.session = session
	c.line = line
	c.logger.Info("dialogue started", "session_id", session.ID, "address", target)

	if c.hooks.OnSessionStart != nil {
		c.hooks.OnSessionStart(&domain.SessionEvent{Session: session})
	}
	c.emitLine()
	return nil
}

// Advance produces the next line. The current cue must be CanContinue.
func (c *Controller) Advance() error {
	if !c.live {
		return domain.ErrNoSessionInProgress
	}
	if !c.line.Cue.CanContinue() {
		return fmt.Errorf("%w: cue is %s", domain.ErrCannotContinue, c.line.Cue)
	}
	return c.advance()
}

// SelectChoice commits the choice with the given index, then advances.
// The index must belong to a choice of the current line.
func (c *Controller) SelectChoice(index int) error {
	if !c.live {
		return domain.ErrNoSessionInProgress
	}
	if !c.line.Cue.Choice() {
		return fmt.Errorf("%w: cue is %s", domain.ErrNotAwaitingChoice, c.line.Cue)
	}

	var chosen *domain.DialogueChoice
	for i := range c.line.Choices {
		if c.line.Choices[i].Index == index {
			chosen = &c.line.Choices[i]
			break
		}
	}
	if chosen == nil {
		return &domain.ChoiceError{Index: index, Available: c.line.ChoiceIndices()}
	}
	choice := *chosen

	if err := c.interp.Choose(index); err != nil {
		return fmt.Errorf("choose %d: %w", index, err)
	}
	c.logger.Debug("choice selected", "session_id", c.session.ID, "index", index, "text", choice.Text)

	if c.hooks.OnChoiceSelected != nil {
		c.hooks.OnChoiceSelected(&domain.ChoiceEvent{SessionID: c.session.ID, Choice: choice})
	}
	if err := c.advance(); err != nil {
		// The choice is committed, so the old choices are no longer on offer.
		c.resync()
		return err
	}
	return nil
}

// End closes the live session and detaches the bridge.
func (c *Controller) End() error {
	if !c.live {
		return domain.ErrNoSessionInProgress
	}
	if c.bridge != nil {
		if err := c.bridge.Detach(c.session.ID); err != nil {
			return fmt.Errorf("end: %w", err)
		}
	}

	session := c.session
	c.live = false
	c.session = domain.Session{}
	c.line = domain.DialogueLine{}
	c.logger.Info("dialogue ended", "session_id", session.ID)

	if c.hooks.OnSessionEnd != nil {
		c.hooks.OnSessionEnd(&domain.SessionEvent{Session: session})
	}
	return nil
}

// State reports Idle, Active or Ended.
func (c *Controller) State() domain.SessionState {
	switch {
	case !c.live:
		return domain.StateIdle
	case c.line.Cue.EndReached():
		return domain.StateEnded
	default:
		return domain.StateActive
	}
}

// InProgress reports whether a session is live.
func (c *Controller) InProgress() bool { return c.live }

// Line returns a copy of the current line.
func (c *Controller) Line() (domain.DialogueLine, bool) {
	if !c.live {
		return domain.DialogueLine{}, false
	}
	return c.line.Clone(), true
}

// Cue returns the cue of the current line, or CueNone when idle.
func (c *Controller) Cue() domain.Cue {
	if !c.live {
		return domain.CueNone
	}
	return c.line.Cue
}

// Session returns the live session.
func (c *Controller) Session() (domain.Session, bool) {
	return c.session, c.live
}

func (c *Controller) advance() error {
	line, err := c.step()
	if err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	c.line = line
	c.emitLine()
	return nil
}

// resync keeps the current text but rebuilds choices and cue from what the
// interpreter has pending, so the host can retry with Advance.
func (c *Controller) resync() {
	line := domain.DialogueLine{Text: c.line.Text, Tags: c.line.Tags}
	if choices, err := c.choices(); err == nil {
		line.Choices = choices
	} else {
		c.logger.Warn("dropping pending choices", "session_id", c.session.ID, "error", err)
	}
	line.Cue = domain.ResolveCue(len(line.Choices) > 0, c.interp.CanContinue())
	c.line = line
	c.logger.Debug("line resynced", "session_id", c.session.ID, "cue", line.Cue.String())
}

func (c *Controller) emitLine() {
	c.logger.Debug("line produced", "session_id", c.session.ID, "cue", c.line.Cue.String(), "choices", len(c.line.Choices))
	if c.hooks.OnLine != nil {
		c.hooks.OnLine(&domain.LineEvent{SessionID: c.session.ID, Line: c.line.Clone()})
	}
}
