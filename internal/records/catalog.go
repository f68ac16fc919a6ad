package records

import (
	"context"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// Catalog collections (templates, reference values, drugs, prescriptions)
// share plain CRUD with filtered listing.

// CreateTemplate persists a report template, defaulting the language.
func (s *Service) CreateTemplate(ctx context.Context, template Document) (Document, error) {
	doc := docstore.Clone(template)
	doc["id"] = s.genID()
	if _, ok := doc["lang"]; !ok {
		doc["lang"] = "pt"
	}
	if err := s.store.Insert(ctx, schema.Templates, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListTemplates returns templates, optionally filtered by organ.
func (s *Service) ListTemplates(ctx context.Context, organ string) ([]Document, error) {
	sel := docstore.Selector{}
	if organ != "" {
		sel["organ"] = docstore.Condition{Op: docstore.MatchEq, Value: organ}
	}
	return s.store.Find(ctx, schema.Templates, sel, docstore.FindOptions{SortField: "title"})
}

// UpdateTemplate patches a template.
func (s *Service) UpdateTemplate(ctx context.Context, id string, fields Document) (Document, error) {
	return s.store.Patch(ctx, schema.Templates, id, fields)
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.Templates, id)
}

// ReferenceFilter narrows reference-range listings.
type ReferenceFilter struct {
	Organ   string
	Species string
}

// CreateReferenceValue persists a reference range.
func (s *Service) CreateReferenceValue(ctx context.Context, value Document) (Document, error) {
	doc := docstore.Clone(value)
	doc["id"] = s.genID()
	if err := s.store.Insert(ctx, schema.ReferenceValues, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListReferenceValues returns reference ranges matching the filter.
func (s *Service) ListReferenceValues(ctx context.Context, filter ReferenceFilter) ([]Document, error) {
	sel := docstore.Selector{}
	if filter.Organ != "" {
		sel["organ"] = docstore.Condition{Op: docstore.MatchEq, Value: filter.Organ}
	}
	if filter.Species != "" {
		sel["species"] = docstore.Condition{Op: docstore.MatchEq, Value: filter.Species}
	}
	return s.store.Find(ctx, schema.ReferenceValues, sel, docstore.FindOptions{SortField: "organ"})
}

// UpdateReferenceValue patches a reference range.
func (s *Service) UpdateReferenceValue(ctx context.Context, id string, fields Document) (Document, error) {
	return s.store.Patch(ctx, schema.ReferenceValues, id, fields)
}

// DeleteReferenceValue removes a reference range.
func (s *Service) DeleteReferenceValue(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.ReferenceValues, id)
}

// CreateDrug persists a drug catalog entry.
func (s *Service) CreateDrug(ctx context.Context, drug Document) (Document, error) {
	doc := docstore.Clone(drug)
	doc["id"] = s.genID()
	if err := s.store.Insert(ctx, schema.Drugs, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDrugs returns drugs, optionally restricted to one practice type and a
// case-insensitive name search.
func (s *Service) ListDrugs(ctx context.Context, practiceType, nameFilter string) ([]Document, error) {
	sel := docstore.Selector{}
	if practiceType != "" {
		sel["type"] = docstore.Condition{Op: docstore.MatchEq, Value: practiceType}
	}
	if nameFilter != "" {
		sel["name"] = docstore.Condition{Op: docstore.MatchContains, Value: nameFilter}
	}
	return s.store.Find(ctx, schema.Drugs, sel, docstore.FindOptions{SortField: "name"})
}

// DeleteDrug removes a drug catalog entry.
func (s *Service) DeleteDrug(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.Drugs, id)
}

// CreatePrescription persists a prescription for a patient.
func (s *Service) CreatePrescription(ctx context.Context, prescription Document) (Document, error) {
	doc := docstore.Clone(prescription)
	doc["id"] = s.genID()
	if _, ok := doc["date"]; !ok {
		doc["date"] = s.now().UTC().Format(timeLayout)
	}
	if err := s.store.Insert(ctx, schema.Prescriptions, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListPrescriptions returns prescriptions newest first, optionally for one
// patient.
func (s *Service) ListPrescriptions(ctx context.Context, patientID string) ([]Document, error) {
	sel := docstore.Selector{}
	if patientID != "" {
		sel["patient_id"] = docstore.Condition{Op: docstore.MatchEq, Value: patientID}
	}
	return s.store.Find(ctx, schema.Prescriptions, sel, docstore.FindOptions{SortField: "date", Descending: true})
}

// DeletePrescription removes a prescription.
func (s *Service) DeletePrescription(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.Prescriptions, id)
}
