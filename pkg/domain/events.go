package domain

// SessionEvent describes a session starting or ending.
type SessionEvent struct {
	Session Session
}

// LineEvent carries a freshly produced line.
type LineEvent struct {
	SessionID string
	Line      DialogueLine
}

// ChoiceEvent describes a committed choice.
type ChoiceEvent struct {
	SessionID string
	Choice    DialogueChoice
}

// LifecycleHooks defines callbacks for dialogue observability.
// Hooks run synchronously after the manager's state has moved; nil hooks are skipped.
type LifecycleHooks struct {
	OnSessionStart   func(*SessionEvent)
	OnSessionEnd     func(*SessionEvent)
	OnLine           func(*LineEvent)
	OnChoiceSelected func(*ChoiceEvent)
}
