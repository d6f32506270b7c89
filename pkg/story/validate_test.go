package story_test

import (
	"strings"
	"testing"

	"github.com/aretw0/parley/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_YAMLAndJSON(t *testing.T) {
	yamlDef, err := story.Parse([]byte(`
title: Tiny
variables:
  visited: false
start:
  - text: Hi
  - set: {visited: true}
`), story.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Tiny", yamlDef.Title)
	assert.Equal(t, "true", yamlDef.Start[1].Set["visited"], "scalars become expressions")

	jsonDef, err := story.Parse([]byte(`{"title":"Tiny","variables":{"count":3},"start":[{"text":"Hi"}]}`), story.FormatJSON)
	require.NoError(t, err)
	s, err := story.New(jsonDef)
	require.NoError(t, err)
	v, err := s.Global("count")
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := story.Parse([]byte("start:\n  - txt: typo\n"), story.FormatYAML)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		problem string
	}{
		{"unknown divert", "start:\n  - divert: Nowhere\n", `divert to unknown address "Nowhere"`},
		{"empty step", "start:\n  - tags: [x]\n", "exactly one of"},
		{"two kinds", "start:\n  - text: a\n    divert: END\n", "exactly one of"},
		{"undeclared set", "start:\n  - set: {gold: '1'}\n", `undeclared variable "gold"`},
		{"bad expression", "variables: {gold: 1}\nstart:\n  - set: {gold: 'gold +'}\n", "invalid expression"},
		{"bad condition", "start:\n  - choices:\n      - text: a\n        when: 'if then'\n", "invalid expression"},
		{"unknown list item", "lists: {Items: [key]}\nvariables: {inv: {origins: [Items]}}\nstart:\n  - add: {inv: [Items.gem]}\n", `no item "gem"`},
		{"add to scalar", "variables: {gold: 1}\nstart:\n  - add: {gold: [x]}\n", "not a list variable"},
		{"duplicate knot", "knots:\n  - name: A\n  - name: A\n", `duplicate knot "A"`},
		{"dotted knot", "knots:\n  - name: A.B\n", `invalid knot name "A.B"`},
		{"undeclared read in set", "variables: {n: 1}\nstart:\n  - set: {n: 'n + missing'}\n", `reads undeclared variable "missing"`},
		{"undeclared read in condition", "start:\n  - choices:\n      - text: a\n        when: 'gold > 2'\n", `reads undeclared variable "gold"`},
		{"list read bare", "lists: {Items: [key]}\nvariables: {inv: {origins: [Items]}, n: 0}\nstart:\n  - set: {n: 'inv'}\n", `reads list variable "inv"`},
		{"empty choice text", "start:\n  - choices:\n      - divert: END\n", "choice text is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := story.Parse([]byte(tt.src), story.FormatYAML)
			require.NoError(t, err)

			err = story.Validate(def)
			require.Error(t, err)
			found := false
			for _, p := range story.Problems(err) {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			assert.True(t, found, "problems %v should mention %q", story.Problems(err), tt.problem)

			_, err = story.New(def)
			assert.Error(t, err)
		})
	}
}

func TestValidate_TestdataStories(t *testing.T) {
	for _, path := range []string{"testdata/greeting.yaml", "testdata/market.yaml"} {
		def, err := story.Load(path)
		require.NoError(t, err)
		assert.NoError(t, story.Validate(def), path)
	}
}

func TestValidate_ExpressionNames(t *testing.T) {
	src := `
lists: {Items: [key]}
variables: {n: 1, name: Ana, inv: {origins: [Items]}}
start:
  - set: {n: "math.max(n, count('inv')) + #tostring(n)"}
  - set: {name: "name .. ' the ' .. string.upper('brave')"}
  - choices:
      - text: a
        when: "has('inv', 'Items.key') and n ~= nil"
        divert: END
`
	def, err := story.Parse([]byte(src), story.FormatYAML)
	require.NoError(t, err)
	assert.NoError(t, story.Validate(def))
}
