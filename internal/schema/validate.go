package schema

import (
	"fmt"
	"slices"
)

// Validate checks a document against a collection definition. The returned
// error is always a *ValidationError naming the offending field. Documents
// are decoded-JSON shaped (map[string]any), but native Go values produced by
// the records layer (int, []string, VisualData) are accepted for the kinds
// they map onto.
func Validate(def Definition, doc map[string]any) error {
	for _, req := range def.Required {
		v, ok := doc[req]
		if !ok || v == nil {
			return &ValidationError{Collection: def.Name, Field: req, Reason: "required field missing"}
		}
		if s, isStr := v.(string); isStr && s == "" && req == def.PrimaryKey {
			return &ValidationError{Collection: def.Name, Field: req, Reason: "primary key must not be empty"}
		}
	}

	for name, value := range doc {
		field, ok := def.Fields[name]
		if !ok {
			return &ValidationError{Collection: def.Name, Field: name, Reason: "unknown field"}
		}
		if value == nil {
			// Absent values are allowed for optional fields; required ones
			// were rejected above.
			continue
		}
		if err := checkKind(field, value); err != nil {
			return &ValidationError{Collection: def.Name, Field: name, Reason: err.Error()}
		}
	}
	return nil
}

func checkKind(field Field, value any) error {
	switch field.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if len(field.Enum) > 0 && !slices.Contains(field.Enum, s) {
			return fmt.Errorf("value %q not in %v", s, field.Enum)
		}
	case KindNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case KindInteger:
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got fractional %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case KindObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case KindStringArray:
		switch v := value.(type) {
		case []string:
		case []any:
			for i, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("expected string at index %d, got %T", i, item)
				}
			}
		default:
			return fmt.Errorf("expected string array, got %T", value)
		}
	case KindObjectArray:
		items, err := objectItems(value)
		if err != nil {
			return err
		}
		if field.VisualItemField != "" {
			for i, item := range items {
				if raw, present := item[field.VisualItemField]; present {
					if _, err := VisualFromValue(raw); err != nil {
						return fmt.Errorf("item %d: %w", i, err)
					}
				}
			}
		}
	case KindVisual:
		if _, err := VisualFromValue(value); err != nil {
			return err
		}
	}
	return nil
}

func objectItems(value any) ([]map[string]any, error) {
	switch v := value.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		items := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at index %d, got %T", i, item)
			}
			items = append(items, m)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected object array, got %T", value)
	}
}
