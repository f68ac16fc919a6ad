package records

import (
	"context"
	"time"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

const timeLayout = time.RFC3339

// CreateExam persists a new exam in draft status with defaulted type, date,
// and empty organ/image lists.
func (s *Service) CreateExam(ctx context.Context, exam Document) (Document, error) {
	doc := docstore.Clone(exam)
	doc["id"] = s.genID()
	if _, ok := doc["exam_type"]; !ok {
		doc["exam_type"] = "ultrasound_abd"
	}
	if _, ok := doc["date"]; !ok {
		doc["date"] = s.now().UTC().Format(timeLayout)
	}
	if _, ok := doc["organs_data"]; !ok {
		doc["organs_data"] = []any{}
	}
	if _, ok := doc["images"]; !ok {
		doc["images"] = []any{}
	}
	doc["status"] = schema.ExamStatusDraft
	if err := s.store.Insert(ctx, schema.Exams, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListExams returns exams newest first, optionally restricted to a patient.
func (s *Service) ListExams(ctx context.Context, patientID string) ([]Document, error) {
	sel := docstore.Selector{}
	if patientID != "" {
		sel["patient_id"] = docstore.Condition{Op: docstore.MatchEq, Value: patientID}
	}
	return s.store.Find(ctx, schema.Exams, sel, docstore.FindOptions{SortField: "date", Descending: true})
}

// GetExam loads one exam by id.
func (s *Service) GetExam(ctx context.Context, id string) (Document, error) {
	return s.store.FindOne(ctx, schema.Exams, id)
}

// UpdateExam patches the stored exam.
func (s *Service) UpdateExam(ctx context.Context, id string, fields Document) (Document, error) {
	return s.store.Patch(ctx, schema.Exams, id, fields)
}

// FinalizeExam moves an exam out of draft. The transition is one-way in
// intended usage.
func (s *Service) FinalizeExam(ctx context.Context, id string) (Document, error) {
	return s.store.Patch(ctx, schema.Exams, id, Document{"status": schema.ExamStatusFinalized})
}

// DeleteExam removes one exam.
func (s *Service) DeleteExam(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.Exams, id)
}

// AttachImage appends an image to the exam, keeping the original payload as
// the backup for later edits. The images list is rebuilt, never mutated in
// place: prior snapshots stay untouched.
func (s *Service) AttachImage(ctx context.Context, examID string, image Document) (Document, error) {
	exam, err := s.store.FindOne(ctx, schema.Exams, examID)
	if err != nil {
		return nil, err
	}
	img := Document{
		"id":           s.genID(),
		"filename":     stringField(image, "filename"),
		"data":         stringField(image, "data"),
		"originalData": stringField(image, "data"),
		"mimeType":     stringOr(image, "mimeType", "image/png"),
		"tags":         cloneTags(image["tags"]),
	}
	images := append(imageList(exam), img)
	if _, err := s.store.Patch(ctx, schema.Exams, examID, Document{"images": images}); err != nil {
		return nil, err
	}
	return img, nil
}

// RemoveImage drops one image from the exam by rebuilding the list without
// it.
func (s *Service) RemoveImage(ctx context.Context, examID, imageID string) error {
	exam, err := s.store.FindOne(ctx, schema.Exams, examID)
	if err != nil {
		return err
	}
	current := imageList(exam)
	next := make([]any, 0, len(current))
	for _, raw := range current {
		if img, ok := raw.(map[string]any); ok && img["id"] == imageID {
			continue
		}
		next = append(next, raw)
	}
	_, err = s.store.Patch(ctx, schema.Exams, examID, Document{"images": next})
	return err
}

func imageList(exam Document) []any {
	if imgs, ok := exam["images"].([]any); ok {
		out := make([]any, len(imgs))
		copy(out, imgs)
		return out
	}
	return []any{}
}

func cloneTags(raw any) []any {
	if tags, ok := raw.([]any); ok {
		out := make([]any, len(tags))
		copy(out, tags)
		return out
	}
	return []any{}
}

func stringField(doc Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

func stringOr(doc Document, key, fallback string) string {
	if v, ok := doc[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
