package domain

import "fmt"

// Cue tells the host what to do after a DialogueLine has been produced.
type Cue int

const (
	// CueNone is the zero value; no line has been produced.
	CueNone Cue = iota
	// CueCanContinue means the host may call Advance.
	CueCanContinue
	// CueChoice means a choice must be selected before the dialogue can continue.
	CueChoice
	// CueEndReached means the story has nothing more to say.
	CueEndReached
)

var cueNames = map[Cue]string{
	CueNone:        "none",
	CueCanContinue: "can_continue",
	CueChoice:      "choice",
	CueEndReached:  "end_reached",
}

// ResolveCue applies the cue precedence: Choice over CanContinue over EndReached.
func ResolveCue(hasChoices, canContinue bool) Cue {
	switch {
	case hasChoices:
		return CueChoice
	case canContinue:
		return CueCanContinue
	default:
		return CueEndReached
	}
}

func (c Cue) String() string {
	if name, ok := cueNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cue(%d)", int(c))
}

// CanContinue reports whether the cue is CueCanContinue.
func (c Cue) CanContinue() bool { return c == CueCanContinue }

// Choice reports whether the cue is CueChoice.
func (c Cue) Choice() bool { return c == CueChoice }

// EndReached reports whether the cue is CueEndReached.
func (c Cue) EndReached() bool { return c == CueEndReached }

// MarshalText encodes the cue by name so JSON and YAML payloads stay readable.
func (c Cue) MarshalText() ([]byte, error) {
	name, ok := cueNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown cue %d", int(c))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a cue name produced by MarshalText.
func (c *Cue) UnmarshalText(text []byte) error {
	for cue, name := range cueNames {
		if name == string(text) {
			*c = cue
			return nil
		}
	}
	return fmt.Errorf("unknown cue %q", string(text))
}
