package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/parley/pkg/domain"
)

// Renderer turns dialogue lines into terminal output.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer builds a glamour renderer. With plain set, lines are rendered as
// undecorated text, which suits pipes and tests.
func NewRenderer(plain bool) (*Renderer, error) {
	if plain {
		return &Renderer{}, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return &Renderer{term: r}, nil
}

// Render returns line as terminal output.
func (r *Renderer) Render(line domain.DialogueLine) (string, error) {
	md := Markdown(line)
	if r.term == nil {
		return md, nil
	}
	return r.term.Render(md)
}

// Markdown formats a line: speaker tag in bold, other tags in italics, choices
// as a numbered list starting at 1.
func Markdown(line domain.DialogueLine) string {
	var sb strings.Builder

	text := line.Text
	if speaker, ok := line.Tag("speaker"); ok && len(speaker.Parameters) > 0 {
		text = fmt.Sprintf("**%s:** %s", speaker.Parameters[0], text)
	}
	if text != "" {
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	var extra []string
	for _, t := range line.Tags {
		if t.Label == "speaker" {
			continue
		}
		extra = append(extra, FormatTag(t))
	}
	if len(extra) > 0 {
		fmt.Fprintf(&sb, "\n_%s_\n", strings.Join(extra, ", "))
	}

	if len(line.Choices) > 0 {
		sb.WriteString("\n")
		for i, c := range line.Choices {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Text)
		}
	}
	return sb.String()
}

// FormatTag renders a tag back in its "label=params::scope" source form.
func FormatTag(t domain.DialogueTag) string {
	s := t.Label
	if t.HasParameters() {
		s += "=" + strings.Join(t.Parameters, ",")
	}
	if t.HasScope() {
		s += "::" + t.Scope
	}
	return s
}
