package variables

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Bridge owns the tracked variable dictionary and, while attached, keeps it in sync
// with one interpreter. It holds no locks; callers serialize access.
type Bridge struct {
	values map[string]domain.Value

	trackedSession string
	tracking       bool
	unsubscribe    ports.UnsubscribeFunc

	onTrackingStart func(sessionID string)
	onTrackingEnd   func(sessionID string)
	logger          *slog.Logger
}

// BridgeOption defines a functional option for configuring the Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets a custom structured logger for the bridge.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithTrackingHooks registers callbacks fired after the bridge attaches to or detaches from a session.
func WithTrackingHooks(onStart, onEnd func(sessionID string)) BridgeOption {
	return func(b *Bridge) {
		b.onTrackingStart = onStart
		b.onTrackingEnd = onEnd
	}
}

// NewBridge creates an uninitialized bridge.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return b
}

// Initialized reports whether the bridge holds a dictionary.
func (b *Bridge) Initialized() bool { return b.values != nil }

// Tracking reports whether a session is attached.
func (b *Bridge) Tracking() bool { return b.tracking }

// TrackedSession returns the id of the attached session.
func (b *Bridge) TrackedSession() (string, bool) {
	return b.trackedSession, b.tracking
}

// InitializeFrom clears the dictionary and repopulates it from every global of table.
// On failure the previous dictionary is kept.
func (b *Bridge) InitializeFrom(table ports.VariableTable) error {
	if b.tracking {
		return fmt.Errorf("initialize: %w", domain.ErrTracking)
	}

	names := table.GlobalNames()
	values := make(map[string]domain.Value, len(names))
	for _, name := range names {
		v, err := table.Global(name)
		if err != nil {
			return fmt.Errorf("initialize %q: %w", name, err)
		}
		if v == nil {
			return fmt.Errorf("initialize %q: %w", name, &domain.TypeMismatchError{Name: name})
		}
		values[name] = domain.CloneValue(v)
	}

	b.values = values
	b.logger.Debug("variables initialized", "count", len(values))
	return nil
}

// Attach pushes every tracked value into table and subscribes to its changes.
// Kinds are validated against the interpreter before anything is written.
func (b *Bridge) Attach(sessionID string, table ports.VariableTable) error {
	if !b.Initialized() {
		return fmt.Errorf("attach: %w", domain.ErrNotInitialized)
	}
	if b.tracking {
		return fmt.Errorf("attach %s: %w", sessionID, domain.ErrAlreadyTracking)
	}

	var push []string
	for _, name := range b.Names() {
		declared, err := table.Global(name)
		if errors.Is(err, domain.ErrUnknownVariable) {
			b.logger.Warn("tracked variable unknown to interpreter", "variable", name)
			continue
		}
		if err != nil {
			return fmt.Errorf("attach %q: %w", name, err)
		}
		if declared.Kind() != b.values[name].Kind() {
			return fmt.Errorf("attach: %w", &domain.TypeMismatchError{
				Name: name, Expected: declared.Kind(), Actual: b.values[name].Kind(),
			})
		}
		push = append(push, name)
	}

	for _, name := range push {
		if err := table.SetGlobal(name, domain.CloneValue(b.values[name])); err != nil {
			return fmt.Errorf("attach %q: %w", name, err)
		}
	}

	b.unsubscribe = table.SubscribeVariableChanged(b.OnVariableChanged)
	b.tracking = true
	b.trackedSession = sessionID
	b.logger.Debug("variables tracking started", "session_id", sessionID, "pushed", len(push))

	if b.onTrackingStart != nil {
		b.onTrackingStart(sessionID)
	}
	return nil
}

// Detach unsubscribes from the interpreter. Values persist in the bridge.
func (b *Bridge) Detach(sessionID string) error {
	if !b.tracking || b.trackedSession != sessionID {
		return fmt.Errorf("detach %s: %w", sessionID, domain.ErrNotTrackingThisSession)
	}

	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.unsubscribe = nil
	b.tracking = false
	b.trackedSession = ""
	b.logger.Debug("variables tracking stopped", "session_id", sessionID)

	if b.onTrackingEnd != nil {
		b.onTrackingEnd(sessionID)
	}
	return nil
}

// OnVariableChanged records a change reported by the interpreter.
// Unknown names are logged and ignored; a kind change is a *domain.TypeMismatchError.
func (b *Bridge) OnVariableChanged(name string, value domain.Value) error {
	if !b.Initialized() {
		return domain.ErrNotInitialized
	}
	current, ok := b.values[name]
	if !ok {
		b.logger.Debug("ignoring change to untracked variable", "variable", name)
		return nil
	}
	if value == nil || value.Kind() != current.Kind() {
		return &domain.TypeMismatchError{Name: name, Expected: current.Kind(), Actual: kindOf(value)}
	}

	b.values[name] = domain.CloneValue(value)
	b.logger.Debug("variable changed", "variable", name, "kind", value.Kind().String(), "value", value.String())
	return nil
}

// Export produces one record per tracked variable, ordered by name.
func (b *Bridge) Export() (domain.Snapshot, error) {
	if b.tracking {
		return domain.Snapshot{}, fmt.Errorf("export: %w", domain.ErrTracking)
	}
	if !b.Initialized() {
		return domain.Snapshot{}, fmt.Errorf("export: %w", domain.ErrNotInitialized)
	}

	snap := domain.Snapshot{Records: make([]domain.VariableRecord, 0, len(b.values))}
	for _, name := range b.Names() {
		snap.Records = append(snap.Records, domain.VariableRecord{Name: name, Value: domain.CloneValue(b.values[name])})
	}
	return snap, nil
}

// Import replaces the dictionary with the snapshot's records.
func (b *Bridge) Import(snap domain.Snapshot) error {
	if b.tracking {
		return fmt.Errorf("import: %w", domain.ErrTracking)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	values := make(map[string]domain.Value, len(snap.Records))
	for _, r := range snap.Records {
		values[r.Name] = domain.CloneValue(r.Value)
	}
	b.values = values
	b.logger.Debug("variables imported", "count", len(values))
	return nil
}

// Get returns the tracked value of name.
func (b *Bridge) Get(name string) (domain.Value, error) {
	v, ok := b.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	return domain.CloneValue(v), nil
}

// Set overwrites a tracked value outside of a session.
func (b *Bridge) Set(name string, value domain.Value) error {
	if b.tracking {
		return fmt.Errorf("set %q: %w", name, domain.ErrCannotMutateWhileTracking)
	}
	current, ok := b.values[name]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	if value == nil || value.Kind() != current.Kind() {
		return &domain.TypeMismatchError{Name: name, Expected: current.Kind(), Actual: kindOf(value)}
	}
	b.values[name] = domain.CloneValue(value)
	return nil
}

// Has reports whether name is tracked.
func (b *Bridge) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Names lists tracked variable names in ascending order.
func (b *Bridge) Names() []string {
	return slices.Sorted(maps.Keys(b.values))
}

// Clear tears the dictionary down. The bridge must be initialized again before Attach.
func (b *Bridge) Clear() error {
	if b.tracking {
		return fmt.Errorf("clear: %w", domain.ErrTracking)
	}
	b.values = nil
	return nil
}

func kindOf(v domain.Value) domain.Kind {
	if v == nil {
		return domain.KindInvalid
	}
	return v.Kind()
}
