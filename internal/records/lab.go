package records

import (
	"context"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// CreateLabExam persists a laboratory panel result for a patient.
func (s *Service) CreateLabExam(ctx context.Context, lab Document) (Document, error) {
	doc := docstore.Clone(lab)
	doc["id"] = s.genID()
	if _, ok := doc["date"]; !ok {
		doc["date"] = s.now().UTC().Format(timeLayout)
	}
	if err := s.store.Insert(ctx, schema.LabExams, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListLabExams returns lab exams newest first, optionally for one patient.
func (s *Service) ListLabExams(ctx context.Context, patientID string) ([]Document, error) {
	sel := docstore.Selector{}
	if patientID != "" {
		sel["patient_id"] = docstore.Condition{Op: docstore.MatchEq, Value: patientID}
	}
	return s.store.Find(ctx, schema.LabExams, sel, docstore.FindOptions{SortField: "date", Descending: true})
}

// DeleteLabExam removes a lab exam.
func (s *Service) DeleteLabExam(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.LabExams, id)
}

// CreateOphthalmoExam persists a per-eye ophthalmology record tied to an
// exam.
func (s *Service) CreateOphthalmoExam(ctx context.Context, oph Document) (Document, error) {
	doc := docstore.Clone(oph)
	doc["id"] = s.genID()
	if err := s.store.Insert(ctx, schema.Ophthalmo, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetOphthalmoExam loads one ophthalmology record.
func (s *Service) GetOphthalmoExam(ctx context.Context, id string) (Document, error) {
	return s.store.FindOne(ctx, schema.Ophthalmo, id)
}

// ListOphthalmoExams returns ophthalmology records for one exam.
func (s *Service) ListOphthalmoExams(ctx context.Context, examID string) ([]Document, error) {
	sel := docstore.Selector{}
	if examID != "" {
		sel["exam_id"] = docstore.Condition{Op: docstore.MatchEq, Value: examID}
	}
	return s.store.Find(ctx, schema.Ophthalmo, sel, docstore.FindOptions{})
}

// UpdateOphthalmoExam patches an ophthalmology record.
func (s *Service) UpdateOphthalmoExam(ctx context.Context, id string, fields Document) (Document, error) {
	return s.store.Patch(ctx, schema.Ophthalmo, id, fields)
}
