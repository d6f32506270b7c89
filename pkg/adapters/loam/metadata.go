package loam

// DocumentType distinguishes knot documents from the story-wide globals document.
const (
	TypeKnot    = "knot"
	TypeGlobals = "globals"
)

// DocumentMetadata is the frontmatter of one story document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type DocumentMetadata struct {
	// Type is "knot" (the default) or "globals".
	Type string `json:"type" mapstructure:"type"`

	// Knot names the knot. Defaults to the file name without extension.
	Knot string `json:"knot" mapstructure:"knot"`

	// Tags are attached to the first line of the body.
	Tags []string `json:"tags" mapstructure:"tags"`

	// Flow holds explicit steps that run before the body lines.
	Flow     []any  `json:"flow" mapstructure:"flow"`
	Choices  []any  `json:"choices" mapstructure:"choices"`
	Stitches []any  `json:"stitches" mapstructure:"stitches"`
	Divert   string `json:"divert" mapstructure:"divert"`

	// Globals document only.
	Title     string              `json:"title" mapstructure:"title"`
	Start     string              `json:"start" mapstructure:"start"`
	Variables map[string]any      `json:"variables" mapstructure:"variables"`
	Lists     map[string][]string `json:"lists" mapstructure:"lists"`
}
