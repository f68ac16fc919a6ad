package docstore

// Document is a decoded-JSON snapshot of one stored record. The store never
// hands out or retains aliases: every boundary crossing is a deep clone, so
// callers can treat results as immutable values and must pass freshly built
// containers on writes.
type Document = map[string]any

// Clone deep-copies a document.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return t
	}
}

// ID extracts the primary key of a document.
func ID(doc Document) string {
	id, _ := doc["id"].(string)
	return id
}
