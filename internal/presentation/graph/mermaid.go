package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/address"
	"github.com/aretw0/parley/pkg/story"
)

const startID = "start"

// Overlay marks sections on the rendered graph.
type Overlay struct {
	Visited []string
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a story definition.
// Shapes:
// - Start and END: ((Circle))
// - Knot: [Rectangle]
// - Stitch: ([Stadium]), grouped in a subgraph with its knot
//
// Plain diverts are solid arrows, choice diverts carry the choice text as a
// label and diverts that leave the current knot are dotted.
func GenerateMermaid(def *story.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	e := &edges{sb: &sb, seen: make(map[string]bool)}

	if len(def.Start) > 0 {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", startID, startID)
	}
	for _, k := range def.Knots {
		knotID := sanitizeID(k.Name)
		if len(k.Stitches) == 0 {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", knotID, k.Name)
			continue
		}
		fmt.Fprintf(&sb, "    subgraph %s_group [\"%s\"]\n", knotID, k.Name)
		fmt.Fprintf(&sb, "        %s[\"%s\"]\n", knotID, k.Name)
		for _, st := range k.Stitches {
			addr := address.Join(k.Name, st.Name)
			fmt.Fprintf(&sb, "        %s([\"%s\"])\n", sanitizeID(addr), addr)
		}
		sb.WriteString("    end\n")
	}

	e.flow(startID, "", def.Start)
	for _, k := range def.Knots {
		if len(k.Flow) == 0 && len(k.Stitches) > 0 {
			e.add(k.Name, address.Join(k.Name, k.Stitches[0].Name), "")
		}
		e.flow(k.Name, k.Name, k.Flow)
		for _, st := range k.Stitches {
			e.flow(address.Join(k.Name, st.Name), k.Name, st.Flow)
		}
	}

	if e.end {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", story.End, story.End)
	}

	if overlay != nil {
		writeOverlay(&sb, overlay)
	}
	return sb.String()
}

type edges struct {
	sb   *strings.Builder
	seen map[string]bool
	end  bool
}

func (e *edges) flow(from, knot string, steps []story.Step) {
	for _, step := range steps {
		if step.Divert != "" {
			e.divert(from, knot, step.Divert, "")
		}
		for _, c := range step.Choices {
			if c.Divert == "" {
				continue
			}
			label := c.Text
			if c.When != "" {
				label = fmt.Sprintf("%s [%s]", c.Text, c.When)
			}
			e.divert(from, knot, c.Divert, label)
		}
	}
}

func (e *edges) divert(from, knot, to, label string) {
	if to == story.End {
		e.end = true
	}
	target, _ := address.Split(to)
	jump := knot != "" && to != story.End && target != knot
	e.write(from, to, label, jump)
}

func (e *edges) add(from, to, label string) {
	e.write(from, to, label, false)
}

func (e *edges) write(from, to, label string, jump bool) {
	key := from + "\x00" + to + "\x00" + label
	if e.seen[key] {
		return
	}
	e.seen[key] = true

	arrow := "-->"
	if jump {
		arrow = "-.->"
	}
	if label != "" {
		safe := strings.ReplaceAll(label, "\"", "'")
		arrow = fmt.Sprintf("-- \"%s\" -->", safe)
		if jump {
			arrow = fmt.Sprintf("-. \"%s\" .->", safe)
		}
	}
	fmt.Fprintf(e.sb, "    %s %s %s\n", sanitizeID(from), arrow, sanitizeID(to))
}

func writeOverlay(sb *strings.Builder, overlay *Overlay) {
	sb.WriteString("\n    %% Overlay Styles\n")
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	visited := make(map[string]bool)
	for _, addr := range overlay.Visited {
		id := sanitizeID(addr)
		if id != "" && !visited[id] {
			visited[id] = true
			fmt.Fprintf(sb, "    class %s visited;\n", id)
		}
	}
	if overlay.Current != "" {
		fmt.Fprintf(sb, "    class %s current;\n", sanitizeID(overlay.Current))
	}
}

func sanitizeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
