package docstore

import (
	"context"
	"fmt"
	"sync"

	"sonoreport/internal/docstore/migrate"
	"sonoreport/internal/schema"
)

// Memory is the in-memory Store implementation. It backs unit tests and dev
// sessions and mirrors the sqlite store's semantics exactly: validated
// writes, snapshot reads, per-document last-write-wins serialization under
// one lock.
type Memory struct {
	mu       sync.RWMutex
	registry *schema.Registry
	chains   migrate.Set
	data     map[string]map[string]Document
}

// NewMemory builds an empty in-memory store over the given registry.
func NewMemory(registry *schema.Registry, chains migrate.Set) *Memory {
	data := make(map[string]map[string]Document)
	for _, name := range registry.Names() {
		data[name] = make(map[string]Document)
	}
	return &Memory{registry: registry, chains: chains, data: data}
}

// ImportSnapshot loads historically persisted documents, migrating any that
// were stored under an older schema version. A migration or validation
// failure aborts the import and leaves the identified document out of the
// store rather than admitting it unmigrated.
func (m *Memory) ImportSnapshot(_ context.Context, snapshot map[string][]Stored) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for collection, stored := range snapshot {
		def, err := m.registry.Get(collection)
		if err != nil {
			return err
		}
		for _, rec := range stored {
			doc := Clone(rec.Doc)
			migrated, err := m.chains.Migrate(collection, ID(doc), doc, rec.Version, def.Version)
			if err != nil {
				migrationsTotal.WithLabelValues(collection, "error").Inc()
				return err
			}
			if err := schema.Validate(def, migrated); err != nil {
				migrationsTotal.WithLabelValues(collection, "error").Inc()
				return fmt.Errorf("migrated document %q: %w", ID(migrated), err)
			}
			if rec.Version != def.Version {
				migrationsTotal.WithLabelValues(collection, "ok").Inc()
			}
			m.data[collection][ID(migrated)] = migrated
		}
	}
	return nil
}

func (m *Memory) collection(name string) (map[string]Document, schema.Definition, error) {
	def, err := m.registry.Get(name)
	if err != nil {
		return nil, schema.Definition{}, err
	}
	return m.data[name], def, nil
}

func (m *Memory) Insert(_ context.Context, collection string, doc Document) (err error) {
	defer func() { recordOp(collection, "insert", err) }()
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, def, err := m.collection(collection)
	if err != nil {
		return err
	}
	return insertLocked(docs, def, doc)
}

func (m *Memory) BulkInsert(_ context.Context, collection string, batch []Document) (err error) {
	defer func() { recordOp(collection, "bulk_insert", err) }()
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, def, err := m.collection(collection)
	if err != nil {
		return err
	}
	// Validate the whole batch before committing any of it so a bad document
	// cannot leave a partial bulk write behind.
	for _, doc := range batch {
		if err := schema.Validate(def, doc); err != nil {
			return err
		}
		if _, exists := docs[ID(doc)]; exists {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, collection, ID(doc))
		}
	}
	seen := make(map[string]struct{}, len(batch))
	for _, doc := range batch {
		if _, dup := seen[ID(doc)]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, collection, ID(doc))
		}
		seen[ID(doc)] = struct{}{}
	}
	for _, doc := range batch {
		docs[ID(doc)] = Clone(doc)
	}
	return nil
}

func insertLocked(docs map[string]Document, def schema.Definition, doc Document) error {
	if err := schema.Validate(def, doc); err != nil {
		return err
	}
	if _, exists := docs[ID(doc)]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, def.Name, ID(doc))
	}
	docs[ID(doc)] = Clone(doc)
	return nil
}

func (m *Memory) FindOne(_ context.Context, collection, id string) (doc Document, err error) {
	defer func() { recordOp(collection, "find_one", err) }()
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, _, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	stored, ok := docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return Clone(stored), nil
}

func (m *Memory) Find(_ context.Context, collection string, sel Selector, opts FindOptions) (out []Document, err error) {
	defer func() { recordOp(collection, "find", err) }()
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, _, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	out = make([]Document, 0)
	for _, stored := range docs {
		match, err := sel.Matches(stored)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, Clone(stored))
		}
	}
	return applyOptions(out, opts), nil
}

func (m *Memory) Count(_ context.Context, collection string, sel Selector) (n int, err error) {
	defer func() { recordOp(collection, "count", err) }()
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, _, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	for _, stored := range docs {
		match, err := sel.Matches(stored)
		if err != nil {
			return 0, err
		}
		if match {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Patch(_ context.Context, collection, id string, fields Document) (doc Document, err error) {
	defer func() { recordOp(collection, "patch", err) }()
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, def, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	stored, ok := docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	merged, err := mergePatch(def, stored, id, fields)
	if err != nil {
		return nil, err
	}
	docs[id] = merged
	return Clone(merged), nil
}

func (m *Memory) Remove(_ context.Context, collection, id string) (err error) {
	defer func() { recordOp(collection, "remove", err) }()
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, _, err := m.collection(collection)
	if err != nil {
		return err
	}
	if _, ok := docs[id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(docs, id)
	return nil
}

func (m *Memory) Close() error { return nil }

// mergePatch builds the merged document and validates it before anything is
// persisted, so an invalid patch leaves the stored document untouched. The
// primary key is immutable.
func mergePatch(def schema.Definition, stored Document, id string, fields Document) (Document, error) {
	merged := Clone(stored)
	for k, v := range fields {
		if k == def.PrimaryKey {
			if s, ok := v.(string); !ok || s != id {
				return nil, &schema.ValidationError{Collection: def.Name, Field: k, Reason: "primary key is immutable"}
			}
			continue
		}
		merged[k] = cloneValue(v)
	}
	if err := schema.Validate(def, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
