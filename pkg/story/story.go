package story

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"sort"

	"github.com/aretw0/parley/pkg/address"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// maxSilentSteps bounds the steps executed between two lines, catching divert loops.
const maxSilentSteps = 10000

var (
	// ErrCannotContinue is returned by Continue when choices are pending or the story ended.
	ErrCannotContinue = errors.New("story cannot continue")
	// ErrNoChoices is returned by Choose when no choice is pending.
	ErrNoChoices = errors.New("no choices pending")
)

var interpolation = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type pendingChoice struct {
	raw    domain.RawChoice
	choice Choice
	resume int
}

// Story is a running instance of a Definition. It implements ports.Interpreter and ports.KnotLister.
type Story struct {
	def      *Definition
	sections map[string][]Step
	knots    []string
	stitches map[string][]string
	origins  map[string]domain.ListOrigin
	defaults map[string]domain.Value
	globals  map[string]domain.Value
	script   *script
	logger   *slog.Logger

	observer      ports.VariableObserver
	observerToken int

	section string
	pos     int
	ended   bool
	settled bool
	tags    []string
	choices []pendingChoice
}

var (
	_ ports.Interpreter = (*Story)(nil)
	_ ports.KnotLister  = (*Story)(nil)
)

// Option defines a functional option for configuring a Story.
type Option func(*Story)

// WithLogger sets a custom structured logger for the story.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Story) {
		s.logger = logger
	}
}

// New validates def and builds a story positioned at its start.
func New(def *Definition, opts ...Option) (*Story, error) {
	if def == nil {
		return nil, errors.New("story: nil definition")
	}
	if err := Validate(def); err != nil {
		return nil, err
	}

	origins, err := buildOrigins(def.Lists)
	if err != nil {
		return nil, err
	}

	s := &Story{
		def:      def,
		sections: map[string][]Step{"": def.Start},
		stitches: make(map[string][]string),
		origins:  origins,
		defaults: make(map[string]domain.Value, len(def.Variables)),
	}
	for _, k := range def.Knots {
		s.knots = append(s.knots, k.Name)
		s.sections[k.Name] = k.Flow
		for _, st := range k.Stitches {
			s.stitches[k.Name] = append(s.stitches[k.Name], st.Name)
			s.sections[address.Join(k.Name, st.Name)] = st.Flow
		}
	}
	for name, raw := range def.Variables {
		v, err := declaredValue(name, raw, origins)
		if err != nil {
			return nil, err
		}
		s.defaults[name] = v
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.script = newScript(s)
	s.ResetState()
	return s, nil
}

// LoadFile reads, validates and builds a story from a YAML or JSON file.
func LoadFile(path string, opts ...Option) (*Story, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(def, opts...)
}

// Definition returns the definition the story was built from.
func (s *Story) Definition() *Definition { return s.def }

// Title returns the story title.
func (s *Story) Title() string { return s.def.Title }

// KnotExists implements ports.NodeTable.
func (s *Story) KnotExists(knot string) bool {
	return slices.Contains(s.knots, knot)
}

// StitchExists implements ports.NodeTable.
func (s *Story) StitchExists(knot, stitch string) bool {
	return slices.Contains(s.stitches[knot], stitch)
}

// Knots lists knot names in declaration order.
func (s *Story) Knots() []string { return slices.Clone(s.knots) }

// Stitches lists the stitches of a knot in declaration order.
func (s *Story) Stitches(knot string) []string { return slices.Clone(s.stitches[knot]) }

// GlobalNames lists declared variables in ascending order.
func (s *Story) GlobalNames() []string {
	return slices.Sorted(maps.Keys(s.globals))
}

// Global returns a copy of a variable's current value.
func (s *Story) Global(name string) (domain.Value, error) {
	v, ok := s.globals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	return domain.CloneValue(v), nil
}

// SetGlobal overwrites a variable without notifying the observer.
func (s *Story) SetGlobal(name string, value domain.Value) error {
	current, ok := s.globals[name]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	if value == nil || value.Kind() != current.Kind() {
		actual := domain.KindInvalid
		if value != nil {
			actual = value.Kind()
		}
		return &domain.TypeMismatchError{Name: name, Expected: current.Kind(), Actual: actual}
	}
	s.globals[name] = domain.CloneValue(value)
	return nil
}

// SubscribeVariableChanged registers the single observer, replacing any previous one.
func (s *Story) SubscribeVariableChanged(obs ports.VariableObserver) ports.UnsubscribeFunc {
	s.observerToken++
	token := s.observerToken
	s.observer = obs
	return func() {
		if s.observerToken == token {
			s.observer = nil
		}
	}
}

// ResetState rewinds the story to its start and restores every variable to its declared value.
func (s *Story) ResetState() {
	s.globals = make(map[string]domain.Value, len(s.defaults))
	for name, v := range s.defaults {
		s.globals[name] = domain.CloneValue(v)
	}
	s.section = ""
	s.pos = 0
	s.ended = false
	s.settled = false
	s.tags = nil
	s.choices = nil
}

// JumpTo moves evaluation to "knot" or "knot.stitch".
func (s *Story) JumpTo(addr string) error {
	if _, err := address.Resolve(s, addr); err != nil {
		return err
	}
	s.enter(addr)
	s.tags = nil
	s.choices = nil
	s.settled = false
	return nil
}

// CanContinue reports whether Continue would produce a line.
func (s *Story) CanContinue() bool {
	return !s.ended && len(s.choices) == 0
}

// Continue runs silent steps up to the next text step, emits it, then stops
// at the following text step, choice point or end. A failing step rolls the
// story back, so a retry emits the same line again.
func (s *Story) Continue() (string, error) {
	if !s.CanContinue() {
		return "", ErrCannotContinue
	}
	cp := s.checkpoint()
	text, err := s.next()
	if err != nil {
		s.rollback(cp)
		return "", err
	}
	return text, nil
}

func (s *Story) next() (string, error) {
	if !s.settled {
		if err := s.settle(); err != nil {
			return "", err
		}
	}

	s.tags = nil
	if s.ended || len(s.choices) > 0 {
		return "", nil
	}

	step := s.sections[s.section][s.pos]
	text := s.interpolate(step.Text)
	s.tags = slices.Clone(step.Tags)
	s.pos++
	s.logger.Debug("story line", "section", s.section, "text", text)

	if err := s.settle(); err != nil {
		return "", err
	}
	return text, nil
}

// CurrentTags returns the raw tags of the last line.
func (s *Story) CurrentTags() []string { return slices.Clone(s.tags) }

// CurrentChoices returns the visible choices, indexed from zero.
func (s *Story) CurrentChoices() []domain.RawChoice {
	if len(s.choices) == 0 {
		return nil
	}
	out := make([]domain.RawChoice, len(s.choices))
	for i, c := range s.choices {
		out[i] = domain.RawChoice{Index: c.raw.Index, Text: c.raw.Text, Tags: slices.Clone(c.raw.Tags)}
	}
	return out
}

// Choose applies the effects of the choice and follows its divert.
func (s *Story) Choose(index int) error {
	if len(s.choices) == 0 {
		return ErrNoChoices
	}
	if index < 0 || index >= len(s.choices) {
		return fmt.Errorf("%w: %d", domain.ErrChoiceIndexOutOfRange, index)
	}

	picked := s.choices[index]
	cp := s.checkpoint()
	if err := s.applyEffects(picked.choice.Set, picked.choice.Add, picked.choice.Remove); err != nil {
		s.rollback(cp)
		return err
	}

	s.choices = nil
	s.tags = nil
	s.settled = false
	if picked.choice.Divert != "" {
		s.divert(picked.choice.Divert)
	} else {
		s.pos = picked.resume
	}
	return nil
}

// settle executes silent steps until a text step, a choice point or the end.
func (s *Story) settle() error {
	s.settled = false
	s.choices = nil

	for i := 0; !s.ended; i++ {
		if i >= maxSilentSteps {
			return fmt.Errorf("story: no line after %d steps in %q", maxSilentSteps, s.section)
		}

		flow := s.sections[s.section]
		if s.pos >= len(flow) {
			s.ended = true
			break
		}

		step := flow[s.pos]
		switch {
		case step.isText():
			s.settled = true
			return nil
		case step.isChoices():
			visible, err := s.visibleChoices(step.Choices, s.pos+1)
			if err != nil {
				return err
			}
			if len(visible) == 0 {
				s.pos++
				continue
			}
			s.choices = visible
			s.settled = true
			return nil
		case step.Divert != "":
			s.divert(step.Divert)
		default:
			if err := s.applyEffects(step.Set, step.Add, step.Remove); err != nil {
				return err
			}
			s.pos++
		}
	}
	s.settled = true
	return nil
}

// checkpoint is the evaluation state a failed step returns to.
type checkpoint struct {
	section string
	pos     int
	ended   bool
	settled bool
	tags    []string
	choices []pendingChoice
	globals map[string]domain.Value
}

func (s *Story) checkpoint() checkpoint {
	globals := make(map[string]domain.Value, len(s.globals))
	for name, v := range s.globals {
		globals[name] = domain.CloneValue(v)
	}
	return checkpoint{
		section: s.section,
		pos:     s.pos,
		ended:   s.ended,
		settled: s.settled,
		tags:    s.tags,
		choices: s.choices,
		globals: globals,
	}
}

// rollback restores cp. Variables changed since cp are reported to the
// observer again with their restored values.
func (s *Story) rollback(cp checkpoint) {
	for _, name := range slices.Sorted(maps.Keys(cp.globals)) {
		if domain.ValuesEqual(s.globals[name], cp.globals[name]) {
			continue
		}
		s.globals[name] = cp.globals[name]
		if s.observer != nil {
			if err := s.observer(name, domain.CloneValue(cp.globals[name])); err != nil {
				s.logger.Warn("observer rejected restored variable", "name", name, "error", err)
			}
		}
	}
	s.section = cp.section
	s.pos = cp.pos
	s.ended = cp.ended
	s.settled = cp.settled
	s.tags = cp.tags
	s.choices = cp.choices
}

func (s *Story) visibleChoices(choices []Choice, resume int) ([]pendingChoice, error) {
	var visible []pendingChoice
	for _, c := range choices {
		if c.When != "" {
			ok, err := s.script.condition(c.When)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		visible = append(visible, pendingChoice{
			raw:    domain.RawChoice{Index: len(visible), Text: s.interpolate(c.Text), Tags: c.Tags},
			choice: c,
			resume: resume,
		})
	}
	return visible, nil
}

func (s *Story) divert(target string) {
	if target == End {
		s.ended = true
		return
	}
	s.enter(target)
}

// enter positions evaluation at the start of a section. A knot without its own
// flow falls through to its first stitch.
func (s *Story) enter(addr string) {
	knot, stitch := address.Split(addr)
	if stitch == "" && len(s.sections[knot]) == 0 && len(s.stitches[knot]) > 0 {
		addr = address.Join(knot, s.stitches[knot][0])
	}
	s.section = addr
	s.pos = 0
	s.ended = false
}

func (s *Story) applyEffects(set map[string]string, add, remove map[string][]string) error {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		current, ok := s.globals[name]
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
		}
		v, err := s.script.value(name, set[name], current.Kind())
		if err != nil {
			return err
		}
		if err := s.assign(name, v); err != nil {
			return err
		}
	}

	if err := s.editLists(add, withItem); err != nil {
		return err
	}
	return s.editLists(remove, withoutItem)
}

func (s *Story) editLists(edits map[string][]string, edit func(domain.List, domain.ListItem) domain.List) error {
	for _, name := range slices.Sorted(maps.Keys(edits)) {
		current, ok := s.globals[name].(domain.List)
		if !ok {
			return fmt.Errorf("%q is not a list variable", name)
		}
		list := current.Clone()
		for _, ref := range edits[name] {
			item, def, err := resolveItem(ref, list, s.origins)
			if err != nil {
				return err
			}
			list = withOrigin(list, def)
			list = edit(list, item)
		}
		if err := s.assign(name, list); err != nil {
			return err
		}
	}
	return nil
}

// assign stores a value and notifies the observer when it changed.
func (s *Story) assign(name string, value domain.Value) error {
	if domain.ValuesEqual(s.globals[name], value) {
		return nil
	}
	s.globals[name] = value
	if s.observer != nil {
		if err := s.observer(name, domain.CloneValue(value)); err != nil {
			return fmt.Errorf("variable %q observer: %w", name, err)
		}
	}
	return nil
}

func (s *Story) interpolate(text string) string {
	return interpolation.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := s.globals[name]; ok {
			return v.String()
		}
		return m
	})
}
