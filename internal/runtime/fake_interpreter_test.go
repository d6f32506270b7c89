package runtime_test

import (
	"errors"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

type fakeChoice struct {
	text   string
	tags   []string
	target string
}

type fakeLine struct {
	text    string
	tags    []string
	next    string
	choices []fakeChoice
	// indices overrides the positional choice indices when set.
	indices []int
}

// fakeInterpreter is a scripted interpreter: addresses are line ids and every
// line either continues to next or offers choices.
type fakeInterpreter struct {
	lines   map[string]fakeLine
	knots   map[string][]string
	start   string
	globals map[string]domain.Value

	pending  string
	current  fakeLine
	targets  []string
	observer ports.VariableObserver

	calls       []string
	continueErr error
	chooseErr   error
}

func newGreetingStory() *fakeInterpreter {
	return &fakeInterpreter{
		start: "Intro",
		knots: map[string][]string{
			"Intro": nil,
			"Start": {"again"},
		},
		lines: map[string]fakeLine{
			"Intro": {text: "Once upon a time.", next: "Intro.2"},
			"Intro.2": {text: "The end.", tags: []string{"mood=calm"}},
			"Start": {
				text: "Hello",
				tags: []string{"speaker=Ana::ui"},
				choices: []fakeChoice{
					{text: "Yes", target: "Start.yes"},
					{text: "No", tags: []string{"sad"}, target: "Start.no"},
				},
			},
			"Start.yes":   {text: "Great!", next: "Start.again"},
			"Start.no":    {text: "Too bad."},
			"Start.again": {text: "Again?", choices: []fakeChoice{{text: "Sure", target: "Start"}}},
		},
		globals: map[string]domain.Value{
			"gold": domain.Int(0),
		},
	}
}

func (f *fakeInterpreter) KnotExists(knot string) bool {
	_, ok := f.knots[knot]
	return ok
}

func (f *fakeInterpreter) StitchExists(knot, stitch string) bool {
	for _, s := range f.knots[knot] {
		if s == stitch {
			return true
		}
	}
	return false
}

func (f *fakeInterpreter) GlobalNames() []string {
	names := make([]string, 0, len(f.globals))
	for n := range f.globals {
		names = append(names, n)
	}
	return names
}

func (f *fakeInterpreter) Global(name string) (domain.Value, error) {
	v, ok := f.globals[name]
	if !ok {
		return nil, domain.ErrUnknownVariable
	}
	return v, nil
}

func (f *fakeInterpreter) SetGlobal(name string, value domain.Value) error {
	f.calls = append(f.calls, "set:"+name)
	f.globals[name] = value
	return nil
}

func (f *fakeInterpreter) SubscribeVariableChanged(obs ports.VariableObserver) ports.UnsubscribeFunc {
	f.observer = obs
	return func() { f.observer = nil }
}

func (f *fakeInterpreter) CanContinue() bool { return f.pending != "" }

func (f *fakeInterpreter) Continue() (string, error) {
	f.calls = append(f.calls, "continue")
	if f.continueErr != nil {
		return "", f.continueErr
	}
	if f.pending == "" {
		return "", errors.New("cannot continue")
	}
	line, ok := f.lines[f.pending]
	if !ok {
		return "", fmt.Errorf("no line %q", f.pending)
	}
	f.current = line
	f.pending = line.next
	f.targets = nil
	for _, c := range line.choices {
		f.targets = append(f.targets, c.target)
	}
	return line.text, nil
}

func (f *fakeInterpreter) CurrentTags() []string { return f.current.tags }

func (f *fakeInterpreter) CurrentChoices() []domain.RawChoice {
	if f.targets == nil {
		return nil
	}
	out := make([]domain.RawChoice, len(f.current.choices))
	for i, c := range f.current.choices {
		out[i] = domain.RawChoice{Index: f.indexAt(i), Text: c.text, Tags: c.tags}
	}
	return out
}

func (f *fakeInterpreter) indexAt(pos int) int {
	if f.current.indices != nil {
		return f.current.indices[pos]
	}
	return pos
}

func (f *fakeInterpreter) Choose(index int) error {
	f.calls = append(f.calls, fmt.Sprintf("choose:%d", index))
	if f.chooseErr != nil {
		return f.chooseErr
	}
	for pos, target := range f.targets {
		if f.indexAt(pos) == index {
			f.pending = target
			f.targets = nil
			return nil
		}
	}
	return errors.New("choice out of range")
}

func (f *fakeInterpreter) JumpTo(addr string) error {
	f.calls = append(f.calls, "jump:"+addr)
	f.pending = addr
	f.targets = nil
	return nil
}

func (f *fakeInterpreter) ResetState() {
	f.calls = append(f.calls, "reset")
	f.pending = f.start
	f.current = fakeLine{}
	f.targets = nil
}

// change simulates the story assigning a global during evaluation.
func (f *fakeInterpreter) change(name string, value domain.Value) error {
	f.globals[name] = value
	if f.observer != nil {
		return f.observer(name, value)
	}
	return nil
}
