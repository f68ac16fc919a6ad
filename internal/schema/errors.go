package schema

import (
	"errors"
	"fmt"
)

// ErrCollectionNotFound keeps unknown-collection lookups consistent across
// the registry and the store.
var ErrCollectionNotFound = errors.New("collection not found")

// ValidationError identifies the offending field so callers can surface it.
type ValidationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: collection %q field %q: %s", e.Collection, e.Field, e.Reason)
}
