package schema

import (
	"fmt"
	"sort"
)

// Kind enumerates the value shapes a field may take. Documents live as
// map[string]any snapshots, so kinds are checked against decoded JSON values.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBool
	KindObject
	KindStringArray
	KindObjectArray
	// KindVisual is the tagged union of legacy annotation payloads:
	// free text, a shape map, a stroke list, or absent. See visual.go.
	KindVisual
)

// Field declares the constraints for a single document field.
type Field struct {
	Kind Kind
	// Enum restricts string fields to the listed values when non-empty.
	Enum []string
	// VisualItemField names a field inside each object-array item that must
	// conform to the visual union (organs_data entries carry one).
	VisualItemField string
}

// Definition is the versioned shape of one collection.
type Definition struct {
	Name       string
	Version    int
	PrimaryKey string
	Fields     map[string]Field
	Required   []string
}

// Registry resolves collection names to their current definitions. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns a registry holding every collection this application
// persists.
func NewRegistry() *Registry {
	defs := make(map[string]Definition, len(collections))
	for _, d := range collections {
		defs[d.Name] = d
	}
	return &Registry{defs: defs}
}

// Get returns the current definition for a collection.
func (r *Registry) Get(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return def, nil
}

// Names lists all registered collections in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
