package variables

import (
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// fakeTable is an in-memory VariableTable with a single observer slot.
type fakeTable struct {
	values   map[string]domain.Value
	observer ports.VariableObserver
	sets     []string
}

func newFakeTable(records ...domain.VariableRecord) *fakeTable {
	t := &fakeTable{values: map[string]domain.Value{}}
	for _, r := range records {
		t.values[r.Name] = r.Value
	}
	return t
}

func (f *fakeTable) GlobalNames() []string {
	names := make([]string, 0, len(f.values))
	for n := range f.values {
		names = append(names, n)
	}
	return names
}

func (f *fakeTable) Global(name string) (domain.Value, error) {
	v, ok := f.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	return v, nil
}

func (f *fakeTable) SetGlobal(name string, value domain.Value) error {
	if _, ok := f.values[name]; !ok {
		return domain.ErrUnknownVariable
	}
	f.values[name] = value
	f.sets = append(f.sets, name)
	return nil
}

func (f *fakeTable) SubscribeVariableChanged(obs ports.VariableObserver) ports.UnsubscribeFunc {
	f.observer = obs
	return func() { f.observer = nil }
}

// change simulates the story assigning a global.
func (f *fakeTable) change(name string, value domain.Value) error {
	f.values[name] = value
	if f.observer != nil {
		return f.observer(name, value)
	}
	return nil
}

func twoOriginList() domain.List {
	return domain.List{
		Items: []domain.ListItem{
			{Origin: "Items", Name: "sword", Value: 2},
			{Origin: "Spells", Name: "fire", Value: 1},
		},
		Origins: []domain.ListOrigin{
			{Name: "Items", Items: []domain.ListOriginItem{{Name: "key", Value: 1}, {Name: "sword", Value: 2}}},
			{Name: "Spells", Items: []domain.ListOriginItem{{Name: "fire", Value: 1}, {Name: "ice", Value: 2}}},
		},
	}
}

func mixedRecords() []domain.VariableRecord {
	return []domain.VariableRecord{
		{Name: "met_guard", Value: domain.Bool(false)},
		{Name: "gold", Value: domain.Int(10)},
		{Name: "mood", Value: domain.Float(0.5)},
		{Name: "name", Value: domain.String("Ana")},
		{Name: "inventory", Value: twoOriginList()},
	}
}
