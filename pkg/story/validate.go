package story

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/parley/pkg/address"
	"github.com/aretw0/parley/pkg/domain"
)

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid story: %s", strings.Join(e.Problems, "; "))
}

type validator struct {
	problems []string
	sections map[string]bool
	origins  map[string]domain.ListOrigin
	kinds    map[string]domain.Kind
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// Validate checks names, diverts, variables, list references and expression syntax.
func Validate(def *Definition) error {
	v := &validator{sections: map[string]bool{}, kinds: map[string]domain.Kind{}}

	origins, err := buildOrigins(def.Lists)
	if err != nil {
		v.addf("%v", err)
		origins = map[string]domain.ListOrigin{}
	}
	v.origins = origins

	for name, raw := range def.Variables {
		if !identifier.MatchString(name) {
			v.addf("variable %q is not a valid identifier", name)
			continue
		}
		val, err := declaredValue(name, raw, origins)
		if err != nil {
			v.addf("%v", err)
			continue
		}
		v.kinds[name] = val.Kind()
	}

	for _, k := range def.Knots {
		switch {
		case k.Name == "" || strings.Contains(k.Name, address.Separator) || k.Name == End:
			v.addf("invalid knot name %q", k.Name)
		case v.sections[k.Name]:
			v.addf("duplicate knot %q", k.Name)
		}
		v.sections[k.Name] = true
		for _, st := range k.Stitches {
			addr := address.Join(k.Name, st.Name)
			switch {
			case st.Name == "" || strings.Contains(st.Name, address.Separator):
				v.addf("knot %q: invalid stitch name %q", k.Name, st.Name)
			case v.sections[addr]:
				v.addf("duplicate stitch %q", addr)
			}
			v.sections[addr] = true
		}
	}

	v.flow("start", def.Start)
	for _, k := range def.Knots {
		v.flow(k.Name, k.Flow)
		for _, st := range k.Stitches {
			v.flow(address.Join(k.Name, st.Name), st.Flow)
		}
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func (v *validator) flow(where string, steps []Step) {
	for i, step := range steps {
		at := fmt.Sprintf("%s[%d]", where, i)

		kinds := 0
		if step.Text != "" {
			kinds++
		}
		if len(step.Set) > 0 || len(step.Add) > 0 || len(step.Remove) > 0 {
			kinds++
		}
		if step.Divert != "" {
			kinds++
		}
		if len(step.Choices) > 0 {
			kinds++
		}
		if kinds != 1 {
			v.addf("%s: a step needs exactly one of text, set/add/remove, divert or choices", at)
		}
		if len(step.Tags) > 0 && step.Text == "" {
			v.addf("%s: tags are only allowed on text steps", at)
		}

		v.effects(at, step.Set, step.Add, step.Remove)
		if step.Divert != "" {
			v.divert(at, step.Divert)
		}
		for j, c := range step.Choices {
			cat := fmt.Sprintf("%s.choices[%d]", at, j)
			if strings.TrimSpace(c.Text) == "" {
				v.addf("%s: choice text is empty", cat)
			}
			if c.When != "" {
				v.expression(cat, c.When)
			}
			v.effects(cat, c.Set, c.Add, c.Remove)
			if c.Divert != "" {
				v.divert(cat, c.Divert)
			}
		}
	}
}

func (v *validator) divert(at, target string) {
	if target == End || v.sections[target] {
		return
	}
	v.addf("%s: divert to unknown address %q", at, target)
}

func (v *validator) effects(at string, set map[string]string, add, remove map[string][]string) {
	for name, expr := range set {
		kind, ok := v.kinds[name]
		switch {
		case !ok:
			v.addf("%s: set of undeclared variable %q", at, name)
		case kind == domain.KindList:
			v.addf("%s: list variable %q must be changed with add/remove", at, name)
		}
		v.expression(at, expr)
	}

	for _, edits := range []map[string][]string{add, remove} {
		for name, refs := range edits {
			if v.kinds[name] != domain.KindList {
				v.addf("%s: %q is not a list variable", at, name)
				continue
			}
			for _, ref := range refs {
				if _, _, err := resolveItem(ref, domain.List{}, v.origins); err != nil {
					v.addf("%s: %v", at, err)
				}
			}
		}
	}
}

// expression checks the syntax of expr and that every name it reads is a
// scalar variable or a builtin.
func (v *validator) expression(at, expr string) {
	if err := compile(expr); err != nil {
		v.addf("%s: %v", at, err)
		return
	}
	for _, name := range freeIdentifiers(expr) {
		kind, ok := v.kinds[name]
		switch {
		case ok && kind == domain.KindList:
			v.addf("%s: expression %q reads list variable %q, use has() or count()", at, expr, name)
		case !ok && !builtins[name]:
			v.addf("%s: expression %q reads undeclared variable %q", at, expr, name)
		}
	}
}

var builtins = map[string]bool{
	"has": true, "count": true, "string": true, "math": true,
	"tostring": true, "tonumber": true, "type": true, "select": true,
	"error": true, "assert": true, "pairs": true, "ipairs": true, "next": true,
}

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

// freeIdentifiers returns the global names an expression reads, skipping
// keywords, string literals and field or method names.
func freeIdentifiers(expr string) []string {
	var names []string
	seen := map[string]bool{}
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == '"' || ch == '\'':
			i++
			for i < len(expr) && expr[i] != ch {
				if expr[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case isDigit(ch):
			for i < len(expr) && (isIdentByte(expr[i]) || expr[i] == '.') {
				i++
			}
		case isIdentStart(ch):
			start := i
			for i < len(expr) && isIdentByte(expr[i]) {
				i++
			}
			name := expr[start:i]
			if keywords[name] || seen[name] || isMember(expr, start) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		default:
			i++
		}
	}
	return names
}

// isMember reports whether the name at start follows a "." or ":" accessor.
// A ".." concatenation does not count.
func isMember(expr string, start int) bool {
	j := start - 1
	for j >= 0 && (expr[j] == ' ' || expr[j] == '\t') {
		j--
	}
	if j < 0 {
		return false
	}
	switch expr[j] {
	case ':':
		return true
	case '.':
		return j == 0 || expr[j-1] != '.'
	}
	return false
}

func isDigit(ch byte) bool      { return ch >= '0' && ch <= '9' }
func isIdentStart(ch byte) bool { return ch == '_' || (ch|0x20 >= 'a' && ch|0x20 <= 'z') }
func isIdentByte(ch byte) bool  { return isIdentStart(ch) || isDigit(ch) }

// Problems returns the individual problems of a validation error, or nil.
func Problems(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return slices.Clone(verr.Problems)
	}
	return nil
}
