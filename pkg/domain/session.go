package domain

import "time"

// SessionState is the coarse state of a dialogue manager.
type SessionState int

const (
	// StateIdle means no session is live.
	StateIdle SessionState = iota
	// StateActive means a session is live and the story can still produce content.
	StateActive
	// StateEnded means the live session reached EndReached and is waiting for End.
	StateEnded
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session identifies the live dialogue of a manager.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Address   string    `json:"address,omitempty" yaml:"address,omitempty"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}
