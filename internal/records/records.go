// Package records is the application-facing data layer: typed operations
// over the document store for patients, exams, settings, profiles, and the
// catalog collections. It owns the composite operations the store cannot
// make atomic (cascade deletes, profile activation) and reports their
// partial failures explicitly.
package records

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sonoreport/internal/docstore"
)

// Service wraps the document store with application semantics.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
	genID  func() string
}

// New constructs the records service.
func New(store docstore.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		genID:  uuid.NewString,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Document re-exported for callers that only import records.
type Document = docstore.Document
