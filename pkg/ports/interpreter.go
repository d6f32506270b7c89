package ports

import "github.com/aretw0/parley/pkg/domain"

// NodeTable answers read-only questions about the story's addressable nodes.
type NodeTable interface {
	// KnotExists reports whether a top-level knot with this name exists.
	KnotExists(knot string) bool
	// StitchExists reports whether stitch is a child of knot.
	StitchExists(knot, stitch string) bool
}

// VariableObserver is notified after an interpreter global changed.
// A non-nil error aborts the interpreter step that caused the change.
type VariableObserver func(name string, value domain.Value) error

// UnsubscribeFunc removes a previously registered observer.
type UnsubscribeFunc func()

// VariableTable exposes the interpreter's typed global variables.
type VariableTable interface {
	// GlobalNames enumerates every declared global.
	GlobalNames() []string
	// Global returns the current value of a global.
	// Returns domain.ErrUnknownVariable if the name is not declared.
	Global(name string) (domain.Value, error)
	// SetGlobal overwrites a global. The value's kind must match the declared kind.
	SetGlobal(name string, value domain.Value) error
	// SubscribeVariableChanged registers the single change observer.
	// Registering a new observer replaces the previous one.
	SubscribeVariableChanged(obs VariableObserver) UnsubscribeFunc
}

// Interpreter is the narrative runtime driven by the session controller.
type Interpreter interface {
	NodeTable
	VariableTable

	// CanContinue reports whether Continue would produce more linear content.
	CanContinue() bool
	// Continue runs until the next line of text and returns it.
	Continue() (string, error)
	// CurrentTags returns the raw tags of the line produced by the last Continue.
	CurrentTags() []string
	// CurrentChoices returns the choices offered after the last Continue.
	CurrentChoices() []domain.RawChoice
	// Choose commits the choice with the given interpreter index.
	Choose(index int) error
	// JumpTo moves evaluation to a resolved "knot" or "knot.stitch" address.
	JumpTo(address string) error
	// ResetState rewinds evaluation and globals to the story's initial state.
	ResetState()
}

// KnotLister is implemented by interpreters that can enumerate their node table.
type KnotLister interface {
	Knots() []string
	Stitches(knot string) []string
}
