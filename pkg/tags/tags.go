// Package tags parses the annotation micro-language attached to dialogue lines and choices.
//
// A raw tag has the form
//
//	label [ "=" param ("," param)* ] [ "::" scope ]
//
// Delimiters that do not split into exactly two segments are kept as part of the
// label, so malformed-looking tags degrade to a plain label instead of failing.
package tags

import (
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

const (
	scopeDelimiter     = "::"
	parameterDelimiter = "="
	listDelimiter      = ","
)

// Parse turns one raw tag string into a DialogueTag.
// It fails with domain.ErrMalformedTag only when no label is left.
func Parse(raw string) (domain.DialogueTag, error) {
	text := strings.TrimSpace(raw)
	tag := domain.DialogueTag{}

	if parts := strings.Split(text, scopeDelimiter); len(parts) == 2 {
		text = parts[0]
		tag.Scope = strings.TrimSpace(parts[1])
	}

	if !strings.Contains(text, scopeDelimiter) {
		if parts := strings.Split(text, parameterDelimiter); len(parts) == 2 {
			text = parts[0]
			tag.Parameters = splitParameters(parts[1])
		}
	}

	tag.Label = strings.TrimSpace(text)
	if tag.Label == "" {
		return domain.DialogueTag{}, &domain.TagError{Raw: raw}
	}
	return tag, nil
}

func splitParameters(s string) []string {
	params := strings.Split(s, listDelimiter)
	for i, p := range params {
		params[i] = strings.TrimSpace(p)
	}
	return params
}

// ParseAll parses every raw tag, preserving order. It stops at the first malformed tag.
func ParseAll(raw []string) ([]domain.DialogueTag, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]domain.DialogueTag, 0, len(raw))
	for _, r := range raw {
		tag, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

// Render is the inverse of Parse for canonical tags: label[=p1,p2,...][::scope].
func Render(tag domain.DialogueTag) string {
	var b strings.Builder
	b.WriteString(tag.Label)
	if tag.HasParameters() {
		b.WriteString(parameterDelimiter)
		b.WriteString(strings.Join(tag.Parameters, listDelimiter))
	}
	if tag.HasScope() {
		b.WriteString(scopeDelimiter)
		b.WriteString(tag.Scope)
	}
	return b.String()
}
