package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Session protocol violations.
var (
	// ErrAlreadyInProgress is returned by Begin when a session is already live.
	ErrAlreadyInProgress = errors.New("dialogue already in progress")
	// ErrNoSessionInProgress is returned when an operation needs a live session.
	ErrNoSessionInProgress = errors.New("no dialogue in progress")
	// ErrCannotContinue is returned by Advance when the cue is Choice or EndReached.
	ErrCannotContinue = errors.New("dialogue cannot continue")
	// ErrNotAwaitingChoice is returned by SelectChoice when no choice is pending.
	ErrNotAwaitingChoice = errors.New("dialogue is not awaiting a choice")
)

// Bridge protocol violations.
var (
	ErrAlreadyTracking        = errors.New("variables already tracking a session")
	ErrNotTrackingThisSession = errors.New("variables are not tracking this session")
	// ErrTracking is returned by Export, Import and InitializeFrom while a session is attached.
	ErrTracking = errors.New("variables are tracking a session")
	// ErrNotInitialized is returned before the bridge was populated from an interpreter.
	ErrNotInitialized = errors.New("variables not initialized")
	// ErrCannotMutateWhileTracking is returned by Set while a session is attached.
	ErrCannotMutateWhileTracking = errors.New("cannot mutate variables while tracking")
)

// Invalid input.
var (
	// ErrInvalidAddress is matched by every address resolution failure.
	ErrInvalidAddress   = errors.New("invalid address")
	ErrEmptyAddress     = errors.New("empty address")
	ErrMalformedAddress = errors.New("malformed address")
	ErrUnknownKnot      = errors.New("unknown knot")
	ErrUnknownStitch    = errors.New("unknown stitch")

	ErrChoiceIndexOutOfRange = errors.New("choice index out of range")
	ErrUnknownVariable       = errors.New("unknown variable")
	ErrInvalidSnapshot       = errors.New("invalid snapshot")
)

// ErrTypeMismatch is returned when a value's kind disagrees with the declared kind.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrMalformedTag is returned when a raw tag has no label left after parsing.
var ErrMalformedTag = errors.New("malformed tag")

// Configuration and persistence errors.
var (
	ErrNoVariableBridge = errors.New("no variable bridge configured")
	ErrNoSnapshotStore  = errors.New("no snapshot store configured")
	// ErrSnapshotNotFound is returned by a SnapshotStore when the key does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// AddressError reports a rejected jump target.
// It matches ErrInvalidAddress and the specific cause.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

func (e *AddressError) Is(target error) bool { return target == ErrInvalidAddress }

// ChoiceError reports a choice index that is not offered by the current line.
type ChoiceError struct {
	Index     int
	Available []int
}

func (e *ChoiceError) Error() string {
	parts := make([]string, len(e.Available))
	for i, idx := range e.Available {
		parts[i] = fmt.Sprint(idx)
	}
	return fmt.Sprintf("%v: %d (available: [%s])", ErrChoiceIndexOutOfRange, e.Index, strings.Join(parts, " "))
}

func (e *ChoiceError) Is(target error) bool { return target == ErrChoiceIndexOutOfRange }

// TypeMismatchError reports a value whose kind differs from the stored one.
type TypeMismatchError struct {
	Name     string
	Expected Kind
	Actual   Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: variable %q is %s, got %s", ErrTypeMismatch, e.Name, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// TagError reports a raw tag string that could not be parsed.
type TagError struct {
	Raw string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%v: %q", ErrMalformedTag, e.Raw)
}

func (e *TagError) Is(target error) bool { return target == ErrMalformedTag }

// ErrorClass groups errors by how a caller is expected to recover.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// ClassStateViolation: the caller misused the protocol and must fix its call sequence.
	ClassStateViolation
	// ClassInvalidInput: the caller supplied bad data.
	ClassInvalidInput
	// ClassTypeSafety: a value kind disagreed with the story's declaration.
	ClassTypeSafety
	// ClassUnexpectedState: the interpreter produced output the core could not interpret.
	ClassUnexpectedState
)

func (c ErrorClass) String() string {
	switch c {
	case ClassStateViolation:
		return "state_violation"
	case ClassInvalidInput:
		return "invalid_input"
	case ClassTypeSafety:
		return "type_safety"
	case ClassUnexpectedState:
		return "unexpected_state"
	default:
		return "unknown"
	}
}

var errorClasses = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassStateViolation, []error{
		ErrAlreadyInProgress, ErrNoSessionInProgress, ErrCannotContinue, ErrNotAwaitingChoice,
		ErrAlreadyTracking, ErrNotTrackingThisSession, ErrTracking, ErrNotInitialized,
		ErrCannotMutateWhileTracking, ErrNoVariableBridge, ErrNoSnapshotStore,
	}},
	{ClassInvalidInput, []error{
		ErrInvalidAddress, ErrChoiceIndexOutOfRange, ErrUnknownVariable, ErrInvalidSnapshot, ErrSnapshotNotFound,
	}},
	{ClassTypeSafety, []error{ErrTypeMismatch}},
	{ClassUnexpectedState, []error{ErrMalformedTag}},
}

// Classify returns the class of err, or ClassUnknown when err is nil or foreign.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	for _, group := range errorClasses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.class
			}
		}
	}
	return ClassUnknown
}
