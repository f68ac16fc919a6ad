package records

import (
	"context"
	"errors"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// profileFlattenFields are the clinic-identity fields copied into the
// settings singleton when a profile is activated.
var profileFlattenFields = []string{
	"clinic_name",
	"clinic_address",
	"veterinarian_name",
	"crmv",
	"professional_email",
	"professional_phone",
	"letterhead_path",
	"signature_path",
	"letterhead_margins_mm",
}

// CreateProfile persists a named clinic-identity bundle and activates it.
func (s *Service) CreateProfile(ctx context.Context, name string, fields Document) (Document, error) {
	doc := Document{"id": s.genID(), "name": name}
	clean := docstore.Clone(fields)
	for _, field := range profileFlattenFields {
		if v, ok := clean[field]; ok {
			doc[field] = v
		}
	}
	if _, ok := doc["letterhead_margins_mm"]; !ok {
		doc["letterhead_margins_mm"] = map[string]any{"top": 30, "left": 15, "right": 15, "bottom": 20}
	}
	if err := s.store.Insert(ctx, schema.Profiles, doc); err != nil {
		return nil, err
	}
	if _, err := s.ActivateProfile(ctx, docstore.ID(doc)); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListProfiles returns every profile sorted by name.
func (s *Service) ListProfiles(ctx context.Context) ([]Document, error) {
	return s.store.Find(ctx, schema.Profiles, nil, docstore.FindOptions{SortField: "name"})
}

// UpdateProfile patches a profile. If it is the active one, its fields are
// re-flattened into settings so the cache stays current.
func (s *Service) UpdateProfile(ctx context.Context, id string, fields Document) (Document, error) {
	doc, err := s.store.Patch(ctx, schema.Profiles, id, fields)
	if err != nil {
		return nil, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings["active_profile_id"] == id {
		if _, err := s.ActivateProfile(ctx, id); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ActivateProfile copies the profile's identity fields into the settings
// singleton and marks it active. The copy and the pointer update are one
// settings patch, but profile and settings remain two documents: a crash
// between reads and the patch leaves the previous profile active, never a
// half-flattened state.
func (s *Service) ActivateProfile(ctx context.Context, profileID string) (Document, error) {
	profile, err := s.store.FindOne(ctx, schema.Profiles, profileID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetSettings(ctx); err != nil {
		return nil, err
	}
	patch := Document{
		"active_profile_id":   profileID,
		"active_profile_name": profile["name"],
	}
	for _, field := range profileFlattenFields {
		if v, ok := profile[field]; ok {
			patch[field] = v
		}
	}
	return s.store.Patch(ctx, schema.Settings, schema.SettingsID, patch)
}

// DeleteProfile removes a profile; if it was active, the active pointer in
// settings is cleared.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, schema.Profiles, id); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings["active_profile_id"] == id {
		_, err = s.store.Patch(ctx, schema.Settings, schema.SettingsID,
			Document{"active_profile_id": "", "active_profile_name": ""})
	}
	return err
}
