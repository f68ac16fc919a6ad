package schema

import (
	"encoding/json"
	"fmt"
)

// VisualKind discriminates the legacy annotation payload shapes.
type VisualKind int

const (
	// VisualAbsent is the null / missing case.
	VisualAbsent VisualKind = iota
	// VisualText holds a base64 or free-text payload.
	VisualText
	// VisualShapes holds a keyed shape map (campimetry grids and the like).
	VisualShapes
	// VisualStrokes holds an ordered stroke list (legacy drawing data).
	VisualStrokes
)

// VisualData is the tagged union replacing the historical
// "string or object or array or null" annotation field. Exactly one of the
// payload members is meaningful, selected by Kind.
type VisualData struct {
	Kind    VisualKind
	Text    string
	Shapes  map[string]any
	Strokes []any
}

// VisualFromValue classifies a decoded JSON value into the union.
func VisualFromValue(value any) (VisualData, error) {
	switch v := value.(type) {
	case nil:
		return VisualData{Kind: VisualAbsent}, nil
	case string:
		return VisualData{Kind: VisualText, Text: v}, nil
	case map[string]any:
		return VisualData{Kind: VisualShapes, Shapes: v}, nil
	case []any:
		return VisualData{Kind: VisualStrokes, Strokes: v}, nil
	case VisualData:
		return v, nil
	default:
		return VisualData{}, fmt.Errorf("visual data must be text, shape map, stroke list, or null, got %T", value)
	}
}

// Value returns the raw JSON-compatible representation of the union.
func (v VisualData) Value() any {
	switch v.Kind {
	case VisualText:
		return v.Text
	case VisualShapes:
		return v.Shapes
	case VisualStrokes:
		return v.Strokes
	default:
		return nil
	}
}

func (v VisualData) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value())
}

func (v *VisualData) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := VisualFromValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
