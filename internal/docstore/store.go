package docstore

import (
	"context"
)

// Store is the collection-oriented document store the whole application sits
// on. Implementations serialize writes per document, validate every write
// against the schema registry, and only ever return snapshots.
//
// There are no multi-document transactions: composite operations such as the
// patient cascade delete are sequences of independent atomic writes, and
// callers own partial-failure handling. Concurrent patches to the same
// document are serialized with last-write-wins semantics.
type Store interface {
	Insert(ctx context.Context, collection string, doc Document) error
	BulkInsert(ctx context.Context, collection string, docs []Document) error
	FindOne(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, collection string, sel Selector, opts FindOptions) ([]Document, error)
	Count(ctx context.Context, collection string, sel Selector) (int, error)
	// Patch shallow-merges fields into the stored document. An invalid patch
	// fails atomically, leaving the prior document unchanged.
	Patch(ctx context.Context, collection, id string, fields Document) (Document, error)
	Remove(ctx context.Context, collection, id string) error
	Close() error
}

// Stored pairs a document with the schema version it was persisted under.
// Used when importing historical snapshots into a store.
type Stored struct {
	Version int
	Doc     Document
}
