package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// CreatePatient assigns an id and creation timestamp and persists the
// patient. The returned document is the stored snapshot.
func (s *Service) CreatePatient(ctx context.Context, patient Document) (Document, error) {
	doc := docstore.Clone(patient)
	doc["id"] = s.genID()
	doc["created_at"] = s.now().UTC().Format(timeLayout)
	if err := s.store.Insert(ctx, schema.Patients, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListPatients returns all patients sorted by name. A non-empty nameFilter
// narrows by case-insensitive substring.
func (s *Service) ListPatients(ctx context.Context, nameFilter string) ([]Document, error) {
	sel := docstore.Selector{}
	if nameFilter != "" {
		sel["name"] = docstore.Condition{Op: docstore.MatchContains, Value: nameFilter}
	}
	return s.store.Find(ctx, schema.Patients, sel, docstore.FindOptions{SortField: "name"})
}

// GetPatient loads one patient by id.
func (s *Service) GetPatient(ctx context.Context, id string) (Document, error) {
	return s.store.FindOne(ctx, schema.Patients, id)
}

// UpdatePatient patches the stored patient and stamps updated_at.
func (s *Service) UpdatePatient(ctx context.Context, id string, fields Document) (Document, error) {
	patch := docstore.Clone(fields)
	patch["updated_at"] = s.now().UTC().Format(timeLayout)
	return s.store.Patch(ctx, schema.Patients, id, patch)
}

// CascadeError reports a patient cascade delete that completed some steps
// and failed others. The cascade is re-entrant: retrying converges because
// already-deleted exams are treated as no-ops.
type CascadeError struct {
	PatientID     string
	FailedExamIDs []string
	Errs          []error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete for patient %q left %d exam(s) behind: %s",
		e.PatientID, len(e.FailedExamIDs), strings.Join(e.FailedExamIDs, ", "))
}

func (e *CascadeError) Unwrap() error { return errors.Join(e.Errs...) }

// DeletePatient removes the patient and every exam referencing it. The store
// has no multi-document transactions, so this is a sequence of independent
// atomic deletes; partial completion is reported as a *CascadeError with the
// exam ids still standing.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, schema.Patients, id); err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		// Patient already gone; still sweep its exams so a retried cascade
		// converges.
		s.logger.Info("patient already deleted, sweeping exams", "patient_id", id)
	}

	exams, err := s.store.Find(ctx, schema.Exams, docstore.Eq(map[string]any{"patient_id": id}), docstore.FindOptions{})
	if err != nil {
		return &CascadeError{PatientID: id, Errs: []error{err}}
	}

	cascade := &CascadeError{PatientID: id}
	for _, exam := range exams {
		examID := docstore.ID(exam)
		if err := s.store.Remove(ctx, schema.Exams, examID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			cascade.FailedExamIDs = append(cascade.FailedExamIDs, examID)
			cascade.Errs = append(cascade.Errs, err)
			s.logger.Error("cascade delete step failed", "patient_id", id, "exam_id", examID, "error", err)
		}
	}
	if len(cascade.Errs) > 0 {
		return cascade
	}
	return nil
}
