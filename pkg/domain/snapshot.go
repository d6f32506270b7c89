package domain

import (
	"fmt"
	"slices"
	"strings"
)

// VariableRecord binds a variable name to its typed value.
type VariableRecord struct {
	Name  string
	Value Value
}

// Snapshot is a point-in-time export of tracked variables, ordered by name.
type Snapshot struct {
	Records []VariableRecord
}

// NewSnapshot builds a snapshot from records, sorting them by name.
func NewSnapshot(records ...VariableRecord) Snapshot {
	s := Snapshot{Records: slices.Clone(records)}
	s.Sort()
	return s
}

// Sort orders the records by name.
func (s *Snapshot) Sort() {
	slices.SortFunc(s.Records, func(a, b VariableRecord) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.Records) }

// Lookup returns the value stored under name.
func (s Snapshot) Lookup(name string) (Value, bool) {
	for _, r := range s.Records {
		if r.Name == name {
			return r.Value, true
		}
	}
	return nil, false
}

// Names lists record names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Records))
	for i, r := range s.Records {
		names[i] = r.Name
	}
	return names
}

// Validate checks that every record has a unique non-empty name and a value.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Records))
	for i, r := range s.Records {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: record %d has an empty name", ErrInvalidSnapshot, i)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate variable %q", ErrInvalidSnapshot, r.Name)
		}
		if r.Value == nil {
			return fmt.Errorf("%w: variable %q has no value", ErrInvalidSnapshot, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Records: make([]VariableRecord, len(s.Records))}
	for i, r := range s.Records {
		out.Records[i] = VariableRecord{Name: r.Name, Value: CloneValue(r.Value)}
	}
	return out
}

// Equal reports whether both snapshots hold the same names and values in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Records) != len(other.Records) {
		return false
	}
	for i := range s.Records {
		if s.Records[i].Name != other.Records[i].Name || !ValuesEqual(s.Records[i].Value, other.Records[i].Value) {
			return false
		}
	}
	return true
}
