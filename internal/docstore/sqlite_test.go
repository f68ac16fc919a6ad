package docstore

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"sonoreport/internal/docstore/migrate"
	"sonoreport/internal/schema"
)

type SQLiteSuite struct {
	suite.Suite
	ctx    context.Context
	path   string
	logger *slog.Logger
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "sonoreport.db")
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *SQLiteSuite) open() *SQLite {
	store, err := OpenSQLite(s.ctx, s.path, schema.NewRegistry(), migrate.Default(), s.logger)
	s.Require().NoError(err)
	return store
}

// writeRaw plants a row directly, bypassing the store, to simulate data
// persisted by an older release.
func (s *SQLiteSuite) writeRaw(collection, id string, version int, body string) {
	db, err := sql.Open("sqlite3", s.path)
	s.Require().NoError(err)
	defer db.Close()
	_, err = db.ExecContext(s.ctx, createDocumentsTable)
	s.Require().NoError(err)
	_, err = db.ExecContext(s.ctx,
		`INSERT INTO documents (collection, id, version, body) VALUES (?, ?, ?, ?)`,
		collection, id, version, body)
	s.Require().NoError(err)
}

func (s *SQLiteSuite) readRawVersion(collection, id string) int {
	db, err := sql.Open("sqlite3", s.path)
	s.Require().NoError(err)
	defer db.Close()
	var version int
	s.Require().NoError(db.QueryRowContext(s.ctx,
		`SELECT version FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&version))
	return version
}

func (s *SQLiteSuite) TestDataSurvivesReopen() {
	store := s.open()
	s.Require().NoError(store.Insert(s.ctx, schema.Patients, Document{"id": "p1", "name": "Rex"}))
	s.Require().NoError(store.Close())

	reopened := s.open()
	defer reopened.Close()
	doc, err := reopened.FindOne(s.ctx, schema.Patients, "p1")
	s.NoError(err)
	s.Equal("Rex", doc["name"])
}

func (s *SQLiteSuite) TestOpenMigratesStaleDocuments() {
	s.writeRaw(schema.Ophthalmo, "o1", 0,
		`{"id":"o1","exam_id":"e1","diagnosis":"cataract"}`)

	store := s.open()
	defer store.Close()

	doc, err := store.FindOne(s.ctx, schema.Ophthalmo, "o1")
	s.Require().NoError(err)
	s.Equal("cataract", doc["diagnosis_od"])
	s.Equal("cataract", doc["diagnosis_os"])
	s.Equal("cataract", doc["diagnosis_legacy"])
	s.NotContains(doc, "diagnosis")

	s.Equal(1, s.readRawVersion(schema.Ophthalmo, "o1"))
}

func (s *SQLiteSuite) TestOpenFailsClosedOnBadDocument() {
	s.writeRaw(schema.Ophthalmo, "bad", 0,
		`{"id":"bad","exam_id":"e1","diagnosis":42}`)

	_, err := OpenSQLite(s.ctx, s.path, schema.NewRegistry(), migrate.Default(), s.logger)
	var merr *migrate.Error
	s.ErrorAs(err, &merr)
	s.Equal("bad", merr.ID)

	// The stored row is untouched for manual repair.
	s.Equal(0, s.readRawVersion(schema.Ophthalmo, "bad"))
}

func (s *SQLiteSuite) TestCRUDSemanticsMatchMemory() {
	store := s.open()
	defer store.Close()

	s.Run("duplicate insert", func() {
		s.Require().NoError(store.Insert(s.ctx, schema.Patients, Document{"id": "p1", "name": "Rex"}))
		s.ErrorIs(store.Insert(s.ctx, schema.Patients, Document{"id": "p1", "name": "Rex"}), ErrDuplicateKey)
	})

	s.Run("bulk insert is transactional", func() {
		err := store.BulkInsert(s.ctx, schema.Drugs, []Document{
			{"id": "d1", "name": "A"},
			{"id": "d1", "name": "B"},
		})
		s.ErrorIs(err, ErrDuplicateKey)
		n, cErr := store.Count(s.ctx, schema.Drugs, nil)
		s.NoError(cErr)
		s.Zero(n)
	})

	s.Run("patch validates before persisting", func() {
		_, err := store.Patch(s.ctx, schema.Patients, "p1", Document{"sex": "invalid"})
		s.Error(err)
		doc, fErr := store.FindOne(s.ctx, schema.Patients, "p1")
		s.NoError(fErr)
		s.NotContains(doc, "sex")
	})

	s.Run("find with selector and sort", func() {
		s.Require().NoError(store.Insert(s.ctx, schema.Patients, Document{"id": "p2", "name": "Amora"}))
		docs, err := store.Find(s.ctx, schema.Patients,
			Selector{"name": {Op: MatchContains, Value: "r"}},
			FindOptions{SortField: "name"})
		s.NoError(err)
		s.Require().Len(docs, 2)
		s.Equal("Amora", docs[0]["name"])
	})

	s.Run("remove missing", func() {
		s.ErrorIs(store.Remove(s.ctx, schema.Patients, "ghost"), ErrNotFound)
	})
}
