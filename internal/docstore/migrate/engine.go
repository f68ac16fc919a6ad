// Package migrate maps stored documents from the schema version they were
// persisted under to the collection's current version, one step per version
// increment. Steps are pure over any document valid at their source version;
// the store applies them eagerly at open time so no stale document is ever
// returned to application code.
package migrate

import (
	"fmt"
)

// Step transforms a document from version N to N+1. The input must not be
// mutated; steps return a new document (pass-through steps may return the
// input unchanged since the store clones around migration).
type Step func(doc map[string]any) (map[string]any, error)

// Chain holds the steps for one collection, keyed by source version.
type Chain map[int]Step

// Set maps collection names to their chains. Collections without an entry
// have never changed shape.
type Set map[string]Chain

// Error identifies exactly which document and version step failed so the
// record can be repaired by hand. The stored document is left untouched.
type Error struct {
	Collection  string
	ID          string
	FromVersion int
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration failed: collection %q id %q step %d->%d: %v",
		e.Collection, e.ID, e.FromVersion, e.FromVersion+1, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Migrate brings a document from version `from` up to version `to`, applying
// one step per increment. A missing step is an error: silently passing a
// document across a version boundary risks data loss.
func (s Set) Migrate(collection, id string, doc map[string]any, from, to int) (map[string]any, error) {
	if from == to {
		return doc, nil
	}
	if from > to {
		return nil, &Error{Collection: collection, ID: id, FromVersion: from,
			Err: fmt.Errorf("stored version %d is newer than target %d", from, to)}
	}
	chain := s[collection]
	current := doc
	for v := from; v < to; v++ {
		step, ok := chain[v]
		if !ok {
			return nil, &Error{Collection: collection, ID: id, FromVersion: v,
				Err: fmt.Errorf("no migration step registered")}
		}
		next, err := step(current)
		if err != nil {
			return nil, &Error{Collection: collection, ID: id, FromVersion: v, Err: err}
		}
		current = next
	}
	return current, nil
}
