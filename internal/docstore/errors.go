package docstore

import "errors"

var (
	// ErrNotFound keeps store-level 404s consistent across the in-memory and
	// sqlite implementations.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey signals an insert collision on the primary key.
	ErrDuplicateKey = errors.New("duplicate key")
)
