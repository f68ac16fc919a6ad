package records

import (
	"context"
	"errors"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
	"sonoreport/internal/seed"
)

// GetSettings returns the settings singleton, recreating it with defaults if
// it has gone missing. Callers must treat the result as a snapshot and never
// cache a mutable reference.
func (s *Service) GetSettings(ctx context.Context) (Document, error) {
	doc, err := s.store.FindOne(ctx, schema.Settings, schema.SettingsID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	s.logger.Warn("settings singleton missing, recreating defaults")
	defaults := seed.DefaultSettings()
	if insertErr := s.store.Insert(ctx, schema.Settings, defaults); insertErr != nil {
		if errors.Is(insertErr, docstore.ErrDuplicateKey) {
			// Lost a race with a concurrent recreate; the singleton exists now.
			return s.store.FindOne(ctx, schema.Settings, schema.SettingsID)
		}
		return nil, insertErr
	}
	return defaults, nil
}

// UpdateSettings patches the singleton.
func (s *Service) UpdateSettings(ctx context.Context, fields Document) (Document, error) {
	if _, err := s.GetSettings(ctx); err != nil {
		return nil, err
	}
	return s.store.Patch(ctx, schema.Settings, schema.SettingsID, fields)
}
