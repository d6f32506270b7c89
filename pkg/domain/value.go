package domain

import (
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a typed interpreter variable.
// The set of implementations is closed: Bool, Int, Float, String and List.
type Value interface {
	Kind() Kind
	String() string
	sealed()
}

// Bool is a boolean variable.
type Bool bool

// Int is an integer variable.
type Int int64

// Float is a floating point variable.
type Float float64

// String is a text variable.
type String string

func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (List) Kind() Kind   { return KindList }

func (Bool) sealed()   {}
func (Int) sealed()    {}
func (Float) sealed()  {}
func (String) sealed() {}
func (List) sealed()   {}

func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }
func (v Int) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string { return string(v) }

// ListItem is one entry of a List: an item of a named origin and its ordinal value.
type ListItem struct {
	Origin string `json:"origin" yaml:"origin"`
	Name   string `json:"item" yaml:"item"`
	Value  int    `json:"value" yaml:"value"`
}

// FullName returns the qualified "Origin.item" form.
func (i ListItem) FullName() string {
	if i.Origin == "" {
		return i.Name
	}
	return i.Origin + "." + i.Name
}

// ListOriginItem is an item declared by a ListOrigin.
type ListOriginItem struct {
	Name  string `json:"item" yaml:"item"`
	Value int    `json:"value" yaml:"value"`
}

// ListOrigin is the definition a list item belongs to: a name and its ordered items.
type ListOrigin struct {
	Name  string           `json:"name" yaml:"name"`
	Items []ListOriginItem `json:"items" yaml:"items"`
}

// Lookup returns the declared ordinal of an item.
func (o ListOrigin) Lookup(item string) (int, bool) {
	for _, it := range o.Items {
		if it.Name == item {
			return it.Value, true
		}
	}
	return 0, false
}

// List is a set of origin items together with the origin definitions needed to rebuild it.
type List struct {
	Items   []ListItem   `json:"items" yaml:"items"`
	Origins []ListOrigin `json:"origins,omitempty" yaml:"origins,omitempty"`
}

func (v List) String() string {
	names := make([]string, len(v.Items))
	for i, item := range v.Items {
		names[i] = item.Name
	}
	return strings.Join(names, ", ")
}

// Contains reports whether the list holds the given item.
func (v List) Contains(origin, name string) bool {
	for _, item := range v.Items {
		if item.Name == name && (origin == "" || item.Origin == origin) {
			return true
		}
	}
	return false
}

// Origin returns the origin definition with the given name.
func (v List) Origin(name string) (ListOrigin, bool) {
	for _, o := range v.Origins {
		if o.Name == name {
			return o, true
		}
	}
	return ListOrigin{}, false
}

// Clone returns a deep copy of the list.
func (v List) Clone() List {
	out := List{}
	if v.Items != nil {
		out.Items = append([]ListItem(nil), v.Items...)
	}
	if v.Origins != nil {
		out.Origins = make([]ListOrigin, len(v.Origins))
		for i, o := range v.Origins {
			out.Origins[i] = ListOrigin{Name: o.Name, Items: append([]ListOriginItem(nil), o.Items...)}
		}
	}
	return out
}

// CloneValue copies v so the result shares no memory with it.
func CloneValue(v Value) Value {
	if l, ok := v.(List); ok {
		return l.Clone()
	}
	return v
}

// ValuesEqual compares two values structurally. Values of different kinds are never equal.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Bool, Int, Float, String:
		return a == b
	case List:
		return listsEqual(av, b.(List))
	default:
		return false
	}
}

func listsEqual(a, b List) bool {
	if len(a.Items) != len(b.Items) || len(a.Origins) != len(b.Origins) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	for i := range a.Origins {
		oa, ob := a.Origins[i], b.Origins[i]
		if oa.Name != ob.Name || len(oa.Items) != len(ob.Items) {
			return false
		}
		for j := range oa.Items {
			if oa.Items[j] != ob.Items[j] {
				return false
			}
		}
	}
	return true
}
