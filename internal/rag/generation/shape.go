package generation

import (
	"encoding/json"
	"fmt"
)

// Kind is the coarse JSON type a top level key must have.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindObject
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is used for a missing or mistyped optional key. It must be JSON encodable.
	Default any
}

type Shape struct {
	Fields []Field
}

func (k Kind) matches(v any) bool {
	switch v.(type) {
	case string:
		return k == KindString
	case []any:
		return k == KindList
	case map[string]any:
		return k == KindObject
	case float64, json.Number:
		return k == KindNumber
	case bool:
		return k == KindBool
	}
	return false
}

// defaultValue returns a fresh copy so callers never share the Field's Default.
func (f Field) defaultValue() any {
	if f.Default == nil {
		switch f.Kind {
		case KindString:
			return ""
		case KindList:
			return []any{}
		case KindObject:
			return map[string]any{}
		}
		return nil
	}
	data, err := json.Marshal(f.Default)
	if err != nil {
		return f.Default
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return f.Default
	}
	return out
}

// Defaults builds an object holding every field's default value.
func (s Shape) Defaults() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.defaultValue()
	}
	return out
}

// Apply checks data against the shape in place. Missing or mistyped optional keys get
// their default; the first missing or mistyped required key is returned as an error.
func (s Shape) Apply(data map[string]any) error {
	for _, f := range s.Fields {
		v, ok := data[f.Name]
		if ok && v != nil && f.Kind.matches(v) {
			continue
		}
		if f.Required {
			if ok && v != nil {
				return fmt.Errorf("%w: %q should be a %s", ErrMissingRequiredKey, f.Name, f.Kind)
			}
			return fmt.Errorf("%w: %q", ErrMissingRequiredKey, f.Name)
		}
		data[f.Name] = f.defaultValue()
	}
	return nil
}
