package variables

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format selects the textual encoding of a snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a name or file extension ("json", ".yml", ...) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q", s)
	}
}

type boolEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value bool   `json:"value" yaml:"value"`
}

type intEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value int64  `json:"value" yaml:"value"`
}

type floatEntry struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

type stringEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type listEntry struct {
	Name    string              `json:"name" yaml:"name"`
	Items   []domain.ListItem   `json:"items" yaml:"items"`
	Origins []domain.ListOrigin `json:"origins" yaml:"origins"`
}

// document is the wire shape of a snapshot: one ordered list per kind.
type document struct {
	Booleans []boolEntry   `json:"booleans,omitempty" yaml:"booleans,omitempty"`
	Integers []intEntry    `json:"integers,omitempty" yaml:"integers,omitempty"`
	Floats   []floatEntry  `json:"floats,omitempty" yaml:"floats,omitempty"`
	Strings  []stringEntry `json:"strings,omitempty" yaml:"strings,omitempty"`
	Lists    []listEntry   `json:"lists,omitempty" yaml:"lists,omitempty"`
}

func toDocument(snap domain.Snapshot) (document, error) {
	var doc document
	for _, r := range snap.Records {
		switch v := r.Value.(type) {
		case domain.Bool:
			doc.Booleans = append(doc.Booleans, boolEntry{Name: r.Name, Value: bool(v)})
		case domain.Int:
			doc.Integers = append(doc.Integers, intEntry{Name: r.Name, Value: int64(v)})
		case domain.Float:
			doc.Floats = append(doc.Floats, floatEntry{Name: r.Name, Value: float64(v)})
		case domain.String:
			doc.Strings = append(doc.Strings, stringEntry{Name: r.Name, Value: string(v)})
		case domain.List:
			c := v.Clone()
			doc.Lists = append(doc.Lists, listEntry{Name: r.Name, Items: c.Items, Origins: c.Origins})
		default:
			return document{}, fmt.Errorf("%w: variable %q has no encodable value", domain.ErrInvalidSnapshot, r.Name)
		}
	}
	return doc, nil
}

func fromDocument(doc document) (domain.Snapshot, error) {
	var records []domain.VariableRecord
	for _, e := range doc.Booleans {
		records = append(records, domain.VariableRecord{Name: e.Name, Value: domain.Bool(e.Value)})
	}
	for _, e := range doc.Integers {
		records = append(records, domain.VariableRecord{Name: e.Name, Value: domain.Int(e.Value)})
	}
	for _, e := range doc.Floats {
		records = append(records, domain.VariableRecord{Name: e.Name, Value: domain.Float(e.Value)})
	}
	for _, e := range doc.Strings {
		records = append(records, domain.VariableRecord{Name: e.Name, Value: domain.String(e.Value)})
	}
	for _, e := range doc.Lists {
		records = append(records, domain.VariableRecord{Name: e.Name, Value: domain.List{Items: e.Items, Origins: e.Origins}})
	}

	snap := domain.NewSnapshot(records...)
	if err := snap.Validate(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// EncodeJSON renders snap in the JSON exchange format.
func EncodeJSON(snap domain.Snapshot) ([]byte, error) {
	doc, err := toDocument(snap)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeJSON parses the JSON exchange format. Records come back ordered by name.
func DecodeJSON(data []byte) (domain.Snapshot, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return fromDocument(doc)
}

// EncodeYAML renders snap in the YAML exchange format.
func EncodeYAML(snap domain.Snapshot) ([]byte, error) {
	doc, err := toDocument(snap)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// DecodeYAML parses the YAML exchange format. Records come back ordered by name.
func DecodeYAML(data []byte) (domain.Snapshot, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return fromDocument(doc)
}

// Encode renders snap in the given format.
func Encode(snap domain.Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return EncodeJSON(snap)
	case FormatYAML:
		return EncodeYAML(snap)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (domain.Snapshot, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	default:
		return domain.Snapshot{}, fmt.Errorf("unsupported snapshot format %q", format)
	}
}
