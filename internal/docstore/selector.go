package docstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Match enumerates the supported field-match operators.
type Match int

const (
	// MatchEq is exact equality on any field value.
	MatchEq Match = iota
	// MatchContains is a case-insensitive substring match on string fields.
	MatchContains
	// MatchRegex is a case-insensitive regular-expression match on string fields.
	MatchRegex
)

// Condition constrains one field.
type Condition struct {
	Op    Match
	Value any
}

// Selector is a conjunction of per-field conditions. A nil or empty selector
// matches every document.
type Selector map[string]Condition

// Eq builds an equality selector over the given fields.
func Eq(fields map[string]any) Selector {
	sel := make(Selector, len(fields))
	for k, v := range fields {
		sel[k] = Condition{Op: MatchEq, Value: v}
	}
	return sel
}

// FindOptions shape the result set of Find.
type FindOptions struct {
	// SortField orders results by one field when non-empty.
	SortField string
	// Descending flips the sort order.
	Descending bool
	// Limit caps the number of returned documents when positive.
	Limit int
}

// Matches reports whether a document satisfies every condition. Regex and
// substring operators only ever match string field values.
func (s Selector) Matches(doc Document) (bool, error) {
	for field, cond := range s {
		value, ok := doc[field]
		if !ok {
			return false, nil
		}
		switch cond.Op {
		case MatchEq:
			if !equalValues(value, cond.Value) {
				return false, nil
			}
		case MatchContains:
			str, okS := value.(string)
			want, okW := cond.Value.(string)
			if !okS || !okW || !strings.Contains(strings.ToLower(str), strings.ToLower(want)) {
				return false, nil
			}
		case MatchRegex:
			str, okS := value.(string)
			pattern, okW := cond.Value.(string)
			if !okS || !okW {
				return false, nil
			}
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return false, fmt.Errorf("selector field %q: %w", field, err)
			}
			if !re.MatchString(str) {
				return false, nil
			}
		}
	}
	return true, nil
}

// equalValues compares decoded-JSON scalars, tolerating the int/float64 split
// between programmatic documents and round-tripped ones.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// sortDocs orders documents by one field. Missing values sort first; mixed
// types fall back to their string form so ordering stays total.
func sortDocs(docs []Document, field string, descending bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		less := lessValues(docs[i][field], docs[j][field])
		if descending {
			return lessValues(docs[j][field], docs[i][field])
		}
		return less
	})
}

func lessValues(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func applyOptions(docs []Document, opts FindOptions) []Document {
	if opts.SortField != "" {
		sortDocs(docs, opts.SortField, opts.Descending)
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs
}
