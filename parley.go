package parley

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/address"
	loamAdapter "github.com/aretw0/parley/pkg/adapters/loam"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/story"
	"github.com/aretw0/parley/pkg/variables"
)

// Manager is the high-level entry point for the parley library.
// It wraps the session controller and the variable bridge behind a single host API.
// A Manager is not safe for concurrent use; hosts serialize their calls.
type Manager struct {
	interp     ports.Interpreter
	controller *runtime.Controller
	bridge     *variables.Bridge
	store      ports.SnapshotStore
	storeKey   string
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	Name       string
}

// Option defines a functional option for configuring the Manager.
type Option func(*Manager)

// WithInterpreter injects a custom interpreter, bypassing story loading.
func WithInterpreter(interp ports.Interpreter) Option {
	return func(m *Manager) {
		m.interp = interp
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithVariableBridge mirrors the interpreter globals into bridge.
// The bridge is initialized from the interpreter unless it already holds values.
func WithVariableBridge(bridge *variables.Bridge) Option {
	return func(m *Manager) {
		m.bridge = bridge
	}
}

// WithSnapshotStore enables SaveVariables and LoadVariables against store under key.
func WithSnapshotStore(store ports.SnapshotStore, key string) Option {
	return func(m *Manager) {
		m.store = store
		m.storeKey = key
	}
}

// WithName overrides the descriptive name derived from the story path.
func WithName(name string) Option {
	return func(m *Manager) {
		m.Name = name
	}
}

// New initializes a new Manager.
// By default it loads the story at storyPath: a .yaml/.json file is read by the
// story package, a directory is read through Loam. If WithInterpreter is provided,
// storyPath can be empty and is only used as a descriptive name.
func New(storyPath string, opts ...Option) (*Manager, error) {
	m := &Manager{}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if m.Name == "" && storyPath != "" {
		m.Name = storyName(storyPath)
	}
	if m.Name != "" {
		m.logger = m.logger.With("story", m.Name)
	}

	if m.interp == nil {
		if storyPath == "" {
			return nil, fmt.Errorf("storyPath is required when no custom interpreter is provided")
		}
		interp, err := loadStory(storyPath, m.logger)
		if err != nil {
			return nil, err
		}
		m.interp = interp
	}

	controllerOpts := []runtime.ControllerOption{
		runtime.WithLifecycleHooks(m.hooks),
		runtime.WithLogger(m.logger),
	}

	if m.bridge != nil {
		if !m.bridge.Initialized() {
			if err := m.bridge.InitializeFrom(m.interp); err != nil {
				return nil, fmt.Errorf("initialize variables: %w", err)
			}
		}
		controllerOpts = append(controllerOpts, runtime.WithBridge(m.bridge))
	}

	m.controller = runtime.NewController(m.interp, controllerOpts...)
	return m, nil
}

func storyName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func loadStory(path string, logger *slog.Logger) (*story.Story, error) {
	def, err := LoadDefinition(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return story.New(def, story.WithLogger(logger))
}

// LoadDefinition reads a story without building it. path is either a YAML or
// JSON story file or a directory with one markdown document per knot.
func LoadDefinition(ctx context.Context, path string) (*story.Definition, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("open story: %w", err)
	}
	if !info.IsDir() {
		return story.Load(absPath)
	}
	return loamAdapter.LoadDir(ctx, absPath)
}

// Begin starts a session. An empty address starts at the story's beginning.
func (m *Manager) Begin(addr string) error { return m.controller.Begin(addr) }

// Advance produces the next line.
func (m *Manager) Advance() error { return m.controller.Advance() }

// SelectChoice picks one of the current line's choices and produces the next line.
func (m *Manager) SelectChoice(index int) error { return m.controller.SelectChoice(index) }

// End stops the live session.
func (m *Manager) End() error { return m.controller.End() }

// Line returns the most recent line of the live session.
func (m *Manager) Line() (domain.DialogueLine, bool) { return m.controller.Line() }

// Cue returns what the host must do next.
func (m *Manager) Cue() domain.Cue { return m.controller.Cue() }

// InProgress reports whether a session is live.
func (m *Manager) InProgress() bool { return m.controller.InProgress() }

// State returns the session state.
func (m *Manager) State() domain.SessionState { return m.controller.State() }

// Session returns the identity of the live session.
func (m *Manager) Session() (domain.Session, bool) { return m.controller.Session() }

// Interpreter returns the underlying interpreter.
func (m *Manager) Interpreter() ports.Interpreter { return m.interp }

// Bridge returns the configured variable bridge, or nil.
func (m *Manager) Bridge() *variables.Bridge { return m.bridge }

// Knots lists every knot and "knot.stitch" address, when the interpreter can enumerate them.
func (m *Manager) Knots() []string {
	lister, ok := m.interp.(ports.KnotLister)
	if !ok {
		return nil
	}
	return address.Enumerate(lister, true)
}

// Variables returns a copy of every mirrored variable. Unlike ExportVariables it
// also works while a session is live.
func (m *Manager) Variables() (map[string]domain.Value, error) {
	if m.bridge == nil {
		return nil, domain.ErrNoVariableBridge
	}
	out := make(map[string]domain.Value)
	for _, name := range m.bridge.Names() {
		v, err := m.bridge.Get(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// ExportVariables snapshots the mirrored variables.
func (m *Manager) ExportVariables() (domain.Snapshot, error) {
	if m.bridge == nil {
		return domain.Snapshot{}, domain.ErrNoVariableBridge
	}
	return m.bridge.Export()
}

// ImportVariables replaces the mirrored variables with snap.
// The values reach the interpreter when the next session begins.
func (m *Manager) ImportVariables(snap domain.Snapshot) error {
	if m.bridge == nil {
		return domain.ErrNoVariableBridge
	}
	return m.bridge.Import(snap)
}

// SaveVariables exports the variables and writes them to the snapshot store.
func (m *Manager) SaveVariables(ctx context.Context) error {
	if m.store == nil {
		return domain.ErrNoSnapshotStore
	}
	snap, err := m.ExportVariables()
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, m.storeKey, snap); err != nil {
		return fmt.Errorf("save variables: %w", err)
	}
	m.logger.Debug("variables saved", "key", m.storeKey, "count", snap.Len())
	return nil
}

// LoadVariables reads the stored snapshot and imports it.
func (m *Manager) LoadVariables(ctx context.Context) error {
	if m.store == nil {
		return domain.ErrNoSnapshotStore
	}
	if m.bridge == nil {
		return domain.ErrNoVariableBridge
	}
	if m.bridge.Tracking() {
		return domain.ErrTracking
	}
	snap, err := m.store.Load(ctx, m.storeKey)
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}
	if err := m.bridge.Import(snap); err != nil {
		return err
	}
	m.logger.Debug("variables loaded", "key", m.storeKey, "count", snap.Len())
	return nil
}

// ResetVariables restores the interpreter defaults and re-initializes the bridge from them.
func (m *Manager) ResetVariables() error {
	if m.bridge == nil {
		return domain.ErrNoVariableBridge
	}
	if m.controller.InProgress() {
		return fmt.Errorf("reset variables: %w", domain.ErrTracking)
	}
	m.interp.ResetState()
	return m.bridge.InitializeFrom(m.interp)
}
