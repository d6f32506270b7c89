package story

import (
	"fmt"
	"math"
	"regexp"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/parley/pkg/domain"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// script evaluates when/set expressions with the story's scalar globals in scope.
type script struct {
	state *lua.State
	story *Story
}

func newScript(s *Story) *script {
	l := lua.NewState()
	lua.BaseOpen(l)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	lua.Require(l, "math", lua.MathOpen, true)
	l.SetTop(0)

	sc := &script{state: l, story: s}
	l.Register("has", sc.has)
	l.Register("count", sc.count)
	return sc
}

// compile checks the syntax of an expression without running it.
func compile(expr string) error {
	l := lua.NewState()
	if err := lua.LoadString(l, "return "+expr); err != nil {
		return fmt.Errorf("invalid expression %q: %w", expr, err)
	}
	return nil
}

func (sc *script) run(expr string) error {
	l := sc.state
	l.SetTop(0)
	for name, v := range sc.story.globals {
		if !identifier.MatchString(name) {
			continue
		}
		switch val := v.(type) {
		case domain.Bool:
			l.PushBoolean(bool(val))
		case domain.Int:
			l.PushInteger(int(val))
		case domain.Float:
			l.PushNumber(float64(val))
		case domain.String:
			l.PushString(string(val))
		default:
			continue
		}
		l.SetGlobal(name)
	}

	if err := lua.LoadString(l, "return "+expr); err != nil {
		return fmt.Errorf("compile %q: %w", expr, err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return nil
}

// condition evaluates expr with Lua truthiness.
func (sc *script) condition(expr string) (bool, error) {
	if err := sc.run(expr); err != nil {
		return false, err
	}
	defer sc.state.SetTop(0)
	return sc.state.ToBoolean(-1), nil
}

// value evaluates expr and converts the result to the given kind.
func (sc *script) value(name, expr string, kind domain.Kind) (domain.Value, error) {
	if err := sc.run(expr); err != nil {
		return nil, err
	}
	l := sc.state
	defer l.SetTop(0)

	mismatch := &domain.TypeMismatchError{Name: name, Expected: kind, Actual: luaKind(l)}
	switch kind {
	case domain.KindBool:
		if l.TypeOf(-1) != lua.TypeBoolean {
			return nil, mismatch
		}
		return domain.Bool(l.ToBoolean(-1)), nil
	case domain.KindInt:
		n, ok := l.ToNumber(-1)
		if l.TypeOf(-1) != lua.TypeNumber || !ok || n != math.Trunc(n) {
			return nil, mismatch
		}
		return domain.Int(int64(n)), nil
	case domain.KindFloat:
		n, ok := l.ToNumber(-1)
		if l.TypeOf(-1) != lua.TypeNumber || !ok {
			return nil, mismatch
		}
		return domain.Float(n), nil
	case domain.KindString:
		if l.TypeOf(-1) != lua.TypeString {
			return nil, mismatch
		}
		s, _ := l.ToString(-1)
		return domain.String(s), nil
	default:
		return nil, fmt.Errorf("variable %q of kind %s cannot be assigned by expression", name, kind)
	}
}

func luaKind(l *lua.State) domain.Kind {
	switch l.TypeOf(-1) {
	case lua.TypeBoolean:
		return domain.KindBool
	case lua.TypeNumber:
		n, _ := l.ToNumber(-1)
		if n == math.Trunc(n) {
			return domain.KindInt
		}
		return domain.KindFloat
	case lua.TypeString:
		return domain.KindString
	default:
		return domain.KindInvalid
	}
}

// has(list, item) reports whether a list variable holds an item ("Origin.item" or bare name).
func (sc *script) has(l *lua.State) int {
	name := lua.CheckString(l, 1)
	ref := lua.CheckString(l, 2)
	list, ok := sc.story.globals[name].(domain.List)
	if !ok {
		lua.Errorf(l, "%s is not a list variable", name)
		return 0
	}
	item, _, err := resolveItem(ref, list, sc.story.origins)
	l.PushBoolean(err == nil && list.Contains(item.Origin, item.Name))
	return 1
}

// count(list) returns the number of items in a list variable.
func (sc *script) count(l *lua.State) int {
	name := lua.CheckString(l, 1)
	list, ok := sc.story.globals[name].(domain.List)
	if !ok {
		lua.Errorf(l, "%s is not a list variable", name)
		return 0
	}
	l.PushInteger(len(list.Items))
	return 1
}
