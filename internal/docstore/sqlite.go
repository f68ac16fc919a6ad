package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"sonoreport/internal/docstore/migrate"
	"sonoreport/internal/schema"
)

// SQLite is the durable Store implementation backing the desktop
// application. All collections share one documents table keyed by
// (collection, id); bodies are stored as JSON alongside the schema version
// they conform to.
type SQLite struct {
	mu       sync.Mutex
	db       *sql.DB
	registry *schema.Registry
	chains   migrate.Set
	logger   *slog.Logger
}

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	version    INTEGER NOT NULL,
	body       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// OpenSQLite opens (creating if needed) the database at path and eagerly
// migrates every document stored under an outdated schema version. A
// migration failure aborts the open with the failing collection, id, and
// version step; the stored rows are left untouched for manual repair.
func OpenSQLite(ctx context.Context, path string, registry *schema.Registry, chains migrate.Set, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createDocumentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	s := &SQLite{db: db, registry: registry, chains: chains, logger: logger}
	if err := s.migrateAll(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateAll brings every stale document up to its collection's current
// version inside one transaction per collection.
func (s *SQLite) migrateAll(ctx context.Context) error {
	for _, name := range s.registry.Names() {
		def, err := s.registry.Get(name)
		if err != nil {
			return err
		}
		if err := s.migrateCollection(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) migrateCollection(ctx context.Context, def schema.Definition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, version, body FROM documents WHERE collection = ? AND version < ?`,
		def.Name, def.Version)
	if err != nil {
		return fmt.Errorf("scan stale documents: %w", err)
	}
	type stale struct {
		id      string
		version int
		body    string
	}
	var pending []stale
	for rows.Next() {
		var rec stale
		if err := rows.Scan(&rec.id, &rec.version, &rec.body); err != nil {
			rows.Close()
			return fmt.Errorf("scan stale document: %w", err)
		}
		pending = append(pending, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan stale documents: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, rec := range pending {
		var doc Document
		if err := json.Unmarshal([]byte(rec.body), &doc); err != nil {
			migrationsTotal.WithLabelValues(def.Name, "error").Inc()
			return &migrate.Error{Collection: def.Name, ID: rec.id, FromVersion: rec.version,
				Err: fmt.Errorf("decode stored body: %w", err)}
		}
		migrated, err := s.chains.Migrate(def.Name, rec.id, doc, rec.version, def.Version)
		if err != nil {
			migrationsTotal.WithLabelValues(def.Name, "error").Inc()
			return err
		}
		if err := schema.Validate(def, migrated); err != nil {
			migrationsTotal.WithLabelValues(def.Name, "error").Inc()
			return &migrate.Error{Collection: def.Name, ID: rec.id, FromVersion: rec.version, Err: err}
		}
		body, err := json.Marshal(migrated)
		if err != nil {
			return fmt.Errorf("encode migrated document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET version = ?, body = ? WHERE collection = ? AND id = ?`,
			def.Version, string(body), def.Name, rec.id); err != nil {
			return fmt.Errorf("persist migrated document %s/%s: %w", def.Name, rec.id, err)
		}
		migrationsTotal.WithLabelValues(def.Name, "ok").Inc()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	s.logger.Info("migrated collection", "collection", def.Name, "documents", len(pending), "version", def.Version)
	return nil
}

func (s *SQLite) Insert(ctx context.Context, collection string, doc Document) (err error) {
	defer func() { recordOp(collection, "insert", err) }()
	return s.insertBatch(ctx, collection, []Document{doc})
}

func (s *SQLite) BulkInsert(ctx context.Context, collection string, batch []Document) (err error) {
	defer func() { recordOp(collection, "bulk_insert", err) }()
	return s.insertBatch(ctx, collection, batch)
}

func (s *SQLite) insertBatch(ctx context.Context, collection string, batch []Document) error {
	def, err := s.registry.Get(collection)
	if err != nil {
		return err
	}
	for _, doc := range batch {
		if err := schema.Validate(def, doc); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range batch {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM documents WHERE collection = ? AND id = ?`,
			collection, ID(doc)).Scan(&exists)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, collection, ID(doc))
		case err != sql.ErrNoRows:
			return fmt.Errorf("check duplicate: %w", err)
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, version, body) VALUES (?, ?, ?, ?)`,
			collection, ID(doc), def.Version, string(body)); err != nil {
			return fmt.Errorf("insert document %s/%s: %w", collection, ID(doc), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (s *SQLite) FindOne(ctx context.Context, collection, id string) (doc Document, err error) {
	defer func() { recordOp(collection, "find_one", err) }()
	if _, err := s.registry.Get(collection); err != nil {
		return nil, err
	}
	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLite) Find(ctx context.Context, collection string, sel Selector, opts FindOptions) (out []Document, err error) {
	defer func() { recordOp(collection, "find", err) }()
	docs, err := s.scanCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	out = make([]Document, 0)
	for _, doc := range docs {
		match, err := sel.Matches(doc)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, doc)
		}
	}
	return applyOptions(out, opts), nil
}

func (s *SQLite) Count(ctx context.Context, collection string, sel Selector) (n int, err error) {
	defer func() { recordOp(collection, "count", err) }()
	docs, err := s.scanCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		match, err := sel.Matches(doc)
		if err != nil {
			return 0, err
		}
		if match {
			n++
		}
	}
	return n, nil
}

func (s *SQLite) scanCollection(ctx context.Context, collection string) ([]Document, error) {
	if _, err := s.registry.Get(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("scan collection %s: %w", collection, err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLite) Patch(ctx context.Context, collection, id string, fields Document) (doc Document, err error) {
	defer func() { recordOp(collection, "patch", err) }()
	def, err := s.registry.Get(collection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin patch tx: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document for patch: %w", err)
	}
	var stored Document
	if err := json.Unmarshal([]byte(body), &stored); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}

	merged, err := mergePatch(def, stored, id, fields)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode patched document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(encoded), collection, id); err != nil {
		return nil, fmt.Errorf("persist patch %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit patch: %w", err)
	}
	return merged, nil
}

func (s *SQLite) Remove(ctx context.Context, collection, id string) (err error) {
	defer func() { recordOp(collection, "remove", err) }()
	if _, err := s.registry.Get(collection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
