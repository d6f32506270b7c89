package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// End is the divert target that stops the story.
const End = "END"

// Definition is the declarative form of a story.
// It uses "mapstructure" tags so YAML, JSON and frontmatter maps decode the same way.
type Definition struct {
	Title     string              `json:"title,omitempty" mapstructure:"title"`
	Lists     map[string][]string `json:"lists,omitempty" mapstructure:"lists"`
	Variables map[string]any      `json:"variables,omitempty" mapstructure:"variables"`
	Start     []Step              `json:"start,omitempty" mapstructure:"start"`
	Knots     []Knot              `json:"knots,omitempty" mapstructure:"knots"`
}

// Knot is a top-level addressable section.
type Knot struct {
	Name     string   `json:"name" mapstructure:"name"`
	Flow     []Step   `json:"flow,omitempty" mapstructure:"flow"`
	Stitches []Stitch `json:"stitches,omitempty" mapstructure:"stitches"`
}

// Stitch is a section nested in a knot, addressed as "knot.stitch".
type Stitch struct {
	Name string `json:"name" mapstructure:"name"`
	Flow []Step `json:"flow,omitempty" mapstructure:"flow"`
}

// Step is one instruction of a flow. Exactly one of Text, Set, Add, Remove,
// Divert or Choices is expected; Tags only apply to Text.
type Step struct {
	Text    string              `json:"text,omitempty" mapstructure:"text"`
	Tags    []string            `json:"tags,omitempty" mapstructure:"tags"`
	Set     map[string]string   `json:"set,omitempty" mapstructure:"set"`
	Add     map[string][]string `json:"add,omitempty" mapstructure:"add"`
	Remove  map[string][]string `json:"remove,omitempty" mapstructure:"remove"`
	Divert  string              `json:"divert,omitempty" mapstructure:"divert"`
	Choices []Choice            `json:"choices,omitempty" mapstructure:"choices"`
}

// Choice is an option of a choices step.
type Choice struct {
	Text   string              `json:"text" mapstructure:"text"`
	Tags   []string            `json:"tags,omitempty" mapstructure:"tags"`
	When   string              `json:"when,omitempty" mapstructure:"when"`
	Set    map[string]string   `json:"set,omitempty" mapstructure:"set"`
	Add    map[string][]string `json:"add,omitempty" mapstructure:"add"`
	Remove map[string][]string `json:"remove,omitempty" mapstructure:"remove"`
	Divert string              `json:"divert,omitempty" mapstructure:"divert"`
}

func (s Step) isText() bool {
	return s.Text != "" && s.Divert == "" && len(s.Choices) == 0
}

func (s Step) isChoices() bool { return len(s.Choices) > 0 }

// Format names the encoding of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported story file %q", path)
	}
}

// Parse decodes a definition. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Definition, error) {
	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return Decode(raw)
}

// Decode converts a generic map (YAML, JSON or frontmatter) into a Definition.
func Decode(raw map[string]any) (*Definition, error) {
	def := &Definition{}
	if err := decodeInto(raw, def); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
		DecodeHook:  mapstructure.DecodeHookFuncType(scalarToExpression),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decode story: %w", err)
	}
	return nil
}

// scalarToExpression lets YAML scalars (true, 3, 0.5) stand for expressions and text.
func scalarToExpression(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch v := data.(type) {
	case bool:
		return strconv.FormatBool(v), nil
	case int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	case json.Number:
		return v.String(), nil
	}
	return data, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}
	return Parse(data, format)
}
