package domain

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// Changed holds variables whose value differs, keyed by name.
	Changed map[string]Value `json:"changed,omitempty"`

	// Added holds variables present only in the newer snapshot.
	Added map[string]Value `json:"added,omitempty"`

	// Removed lists variables present only in the older snapshot.
	Removed []string `json:"removed,omitempty"`
}

// DiffSnapshots calculates the difference between oldSnap and newSnap.
// It returns nil when both hold the same records.
func DiffSnapshots(oldSnap, newSnap Snapshot) *SnapshotDiff {
	diff := &SnapshotDiff{}

	for _, rec := range newSnap.Records {
		oldVal, ok := oldSnap.Lookup(rec.Name)
		switch {
		case !ok:
			if diff.Added == nil {
				diff.Added = make(map[string]Value)
			}
			diff.Added[rec.Name] = rec.Value
		case !ValuesEqual(oldVal, rec.Value):
			if diff.Changed == nil {
				diff.Changed = make(map[string]Value)
			}
			diff.Changed[rec.Name] = rec.Value
		}
	}

	for _, rec := range oldSnap.Records {
		if _, ok := newSnap.Lookup(rec.Name); !ok {
			diff.Removed = append(diff.Removed, rec.Name)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d == nil || (len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0)
}
