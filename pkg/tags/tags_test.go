package tags

import (
	"fmt"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.DialogueTag
	}{
		{"plain label", "shake", domain.DialogueTag{Label: "shake"}},
		{"trimmed", "  shake  ", domain.DialogueTag{Label: "shake"}},
		{"single parameter", "speaker=Ana", domain.DialogueTag{Label: "speaker", Parameters: []string{"Ana"}}},
		{"parameter list", "mood=happy, loud", domain.DialogueTag{Label: "mood", Parameters: []string{"happy", "loud"}}},
		{"scope only", "portrait::left", domain.DialogueTag{Label: "portrait", Scope: "left"}},
		{"full form", "speaker=Ana,Bea::ui", domain.DialogueTag{Label: "speaker", Scope: "ui", Parameters: []string{"Ana", "Bea"}}},
		{"double scope degrades", "a::b::c", domain.DialogueTag{Label: "a::b::c"}},
		{"double equals degrades", "a=b=c", domain.DialogueTag{Label: "a=b=c"}},
		{"double equals keeps scope", "a=b=c::s", domain.DialogueTag{Label: "a=b=c", Scope: "s"}},
		{"empty parameter", "flag=", domain.DialogueTag{Label: "flag", Parameters: []string{""}}},
		{"empty scope is absent", "flag::", domain.DialogueTag{Label: "flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_MalformedTags(t *testing.T) {
	for _, raw := range []string{"", "   ", "=x", "::scope", "=a::s"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, domain.ErrMalformedTag)
			assert.Equal(t, domain.ClassUnexpectedState, domain.Classify(err))
		})
	}
}

func TestParse_DegradeToLabel(t *testing.T) {
	tag, err := Parse("a::b::c")
	require.NoError(t, err)
	assert.Equal(t, "a::b::c", tag.Label)
	assert.False(t, tag.HasScope())
	assert.False(t, tag.HasParameters())
}

func TestRender_RoundTrip(t *testing.T) {
	labels := []string{"speaker", "x"}
	paramSets := [][]string{nil, {"p1"}, {"p1", "p2"}, {"a", "b", "c"}}
	scopes := []string{"", "scope"}

	for _, label := range labels {
		for _, params := range paramSets {
			for _, scope := range scopes {
				canonical := Render(domain.DialogueTag{Label: label, Parameters: params, Scope: scope})
				t.Run(canonical, func(t *testing.T) {
					tag, err := Parse(canonical)
					require.NoError(t, err)
					assert.Equal(t, canonical, Render(tag))
				})
			}
		}
	}
}

func TestParseAll(t *testing.T) {
	got, err := ParseAll([]string{"speaker=Ana", "shake::camera"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "speaker", got[0].Label)
	assert.Equal(t, "camera", got[1].Scope)

	got, err = ParseAll(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseAll([]string{"ok", "  "})
	assert.ErrorIs(t, err, domain.ErrMalformedTag)
}
