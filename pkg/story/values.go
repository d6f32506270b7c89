package story

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// buildOrigins turns the lists section into origin definitions with ordinals 1..n.
func buildOrigins(lists map[string][]string) (map[string]domain.ListOrigin, error) {
	origins := make(map[string]domain.ListOrigin, len(lists))
	for name, items := range lists {
		if name == "" || strings.Contains(name, ".") {
			return nil, fmt.Errorf("invalid list name %q", name)
		}
		origin := domain.ListOrigin{Name: name, Items: make([]domain.ListOriginItem, 0, len(items))}
		seen := map[string]bool{}
		for i, item := range items {
			if item == "" || strings.Contains(item, ".") || seen[item] {
				return nil, fmt.Errorf("list %q: invalid or duplicate item %q", name, item)
			}
			seen[item] = true
			origin.Items = append(origin.Items, domain.ListOriginItem{Name: item, Value: i + 1})
		}
		origins[name] = origin
	}
	return origins, nil
}

// declaredValue converts the raw declaration of a variable into its initial value.
func declaredValue(name string, raw any, origins map[string]domain.ListOrigin) (domain.Value, error) {
	switch v := raw.(type) {
	case bool:
		return domain.Bool(v), nil
	case int:
		return domain.Int(v), nil
	case int64:
		return domain.Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("variable %q: integer out of range", name)
		}
		return domain.Int(v), nil
	case float64:
		return domain.Float(v), nil
	case string:
		return domain.String(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return domain.Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		return domain.Float(f), nil
	case map[string]any:
		return declaredList(name, v, origins)
	case nil:
		return nil, fmt.Errorf("variable %q has no initial value", name)
	default:
		return nil, fmt.Errorf("variable %q: unsupported value %T", name, raw)
	}
}

func declaredList(name string, raw map[string]any, origins map[string]domain.ListOrigin) (domain.Value, error) {
	var decl struct {
		Origins []string
		Origin  string
		Items   []string
	}
	if err := decodeInto(raw, &decl); err != nil {
		return nil, fmt.Errorf("list variable %q: %w", name, err)
	}

	list := domain.List{}
	names := decl.Origins
	if decl.Origin != "" {
		names = append(names, decl.Origin)
	}
	for _, o := range names {
		def, ok := origins[o]
		if !ok {
			return nil, fmt.Errorf("list variable %q: unknown list %q", name, o)
		}
		list = withOrigin(list, def)
	}
	for _, ref := range decl.Items {
		item, def, err := resolveItem(ref, list, origins)
		if err != nil {
			return nil, fmt.Errorf("list variable %q: %w", name, err)
		}
		list = withOrigin(list, def)
		list = withItem(list, item)
	}
	return list, nil
}

// resolveItem finds "Origin.item" or a bare item name, preferring the list's own origins.
func resolveItem(ref string, list domain.List, origins map[string]domain.ListOrigin) (domain.ListItem, domain.ListOrigin, error) {
	if originName, itemName, qualified := strings.Cut(ref, "."); qualified {
		def, ok := origins[originName]
		if !ok {
			return domain.ListItem{}, domain.ListOrigin{}, fmt.Errorf("unknown list %q in %q", originName, ref)
		}
		value, ok := def.Lookup(itemName)
		if !ok {
			return domain.ListItem{}, domain.ListOrigin{}, fmt.Errorf("list %q has no item %q", originName, itemName)
		}
		return domain.ListItem{Origin: originName, Name: itemName, Value: value}, def, nil
	}

	for _, def := range list.Origins {
		if value, ok := def.Lookup(ref); ok {
			return domain.ListItem{Origin: def.Name, Name: ref, Value: value}, origins[def.Name], nil
		}
	}

	var found []domain.ListOrigin
	for _, def := range origins {
		if _, ok := def.Lookup(ref); ok {
			found = append(found, def)
		}
	}
	switch len(found) {
	case 0:
		return domain.ListItem{}, domain.ListOrigin{}, fmt.Errorf("unknown list item %q", ref)
	case 1:
		value, _ := found[0].Lookup(ref)
		return domain.ListItem{Origin: found[0].Name, Name: ref, Value: value}, found[0], nil
	default:
		return domain.ListItem{}, domain.ListOrigin{}, fmt.Errorf("ambiguous list item %q", ref)
	}
}

func withOrigin(list domain.List, def domain.ListOrigin) domain.List {
	if _, ok := list.Origin(def.Name); ok {
		return list
	}
	list.Origins = append(list.Origins, domain.ListOrigin{Name: def.Name, Items: slices.Clone(def.Items)})
	slices.SortFunc(list.Origins, func(a, b domain.ListOrigin) int { return strings.Compare(a.Name, b.Name) })
	return list
}

func withItem(list domain.List, item domain.ListItem) domain.List {
	if list.Contains(item.Origin, item.Name) {
		return list
	}
	list.Items = append(list.Items, item)
	slices.SortFunc(list.Items, func(a, b domain.ListItem) int {
		if a.Value != b.Value {
			return a.Value - b.Value
		}
		return strings.Compare(a.Origin, b.Origin)
	})
	return list
}

func withoutItem(list domain.List, item domain.ListItem) domain.List {
	list.Items = slices.DeleteFunc(list.Items, func(i domain.ListItem) bool {
		return i.Origin == item.Origin && i.Name == item.Name
	})
	return list
}
