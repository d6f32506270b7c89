package domain

import "slices"

// DialogueTag is the structured form of one raw annotation string.
// Scope is empty and Parameters is nil when the raw tag did not carry them.
type DialogueTag struct {
	Label      string   `json:"label" yaml:"label"`
	Scope      string   `json:"scope,omitempty" yaml:"scope,omitempty"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// HasScope reports whether a scope was extracted.
func (t DialogueTag) HasScope() bool { return t.Scope != "" }

// HasParameters reports whether a parameter list was extracted.
func (t DialogueTag) HasParameters() bool { return t.Parameters != nil }

// DialogueChoice is a selectable option of a DialogueLine.
// Index is assigned by the interpreter and is only meaningful for the line that produced it.
type DialogueChoice struct {
	Index int           `json:"index" yaml:"index"`
	Text  string        `json:"text" yaml:"text"`
	Tags  []DialogueTag `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DialogueLine is the immutable result of one advance step.
type DialogueLine struct {
	Text    string           `json:"text" yaml:"text"`
	Tags    []DialogueTag    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Choices []DialogueChoice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Cue     Cue              `json:"cue" yaml:"cue"`
}

// Tag returns the first tag with the given label.
func (l DialogueLine) Tag(label string) (DialogueTag, bool) {
	for _, t := range l.Tags {
		if t.Label == label {
			return t, true
		}
	}
	return DialogueTag{}, false
}

// HasChoice reports whether index belongs to one of the line's choices.
func (l DialogueLine) HasChoice(index int) bool {
	return slices.ContainsFunc(l.Choices, func(c DialogueChoice) bool {
		return c.Index == index
	})
}

// ChoiceIndices lists the indices of the line's choices in presentation order.
func (l DialogueLine) ChoiceIndices() []int {
	indices := make([]int, len(l.Choices))
	for i, c := range l.Choices {
		indices[i] = c.Index
	}
	return indices
}

// Clone returns a deep copy, so callers can hold on to a line without sharing slices.
func (l DialogueLine) Clone() DialogueLine {
	out := DialogueLine{Text: l.Text, Cue: l.Cue, Tags: cloneTags(l.Tags)}
	if l.Choices != nil {
		out.Choices = make([]DialogueChoice, len(l.Choices))
		for i, c := range l.Choices {
			out.Choices[i] = DialogueChoice{Index: c.Index, Text: c.Text, Tags: cloneTags(c.Tags)}
		}
	}
	return out
}

func cloneTags(tags []DialogueTag) []DialogueTag {
	if tags == nil {
		return nil
	}
	out := make([]DialogueTag, len(tags))
	for i, t := range tags {
		out[i] = DialogueTag{Label: t.Label, Scope: t.Scope, Parameters: slices.Clone(t.Parameters)}
	}
	return out
}

// RawChoice is a choice as reported by the interpreter, before tag parsing.
type RawChoice struct {
	Index int
	Text  string
	Tags  []string
}
