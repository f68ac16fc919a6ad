// Package seed idempotently populates empty collections with their default
// reference data on first run. Presence is detected by existence/count
// checks against the store, never by a separate "seeded" flag.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// Run seeds every default set. A failure in one set is logged and does not
// stop the others; the joined error is returned so the caller can surface it
// without aborting boot.
func Run(ctx context.Context, store docstore.Store, logger *slog.Logger) error {
	var errs []error
	if err := settingsSingleton(ctx, store, logger); err != nil {
		errs = append(errs, fmt.Errorf("seed settings: %w", err))
		logger.Warn("seeding settings failed", "error", err)
	}
	for _, set := range []struct {
		collection string
		docs       []docstore.Document
	}{
		{schema.Drugs, defaultDrugs()},
		{schema.Templates, defaultTemplates()},
		{schema.ReferenceValues, defaultReferenceValues()},
	} {
		if err := emptyCollection(ctx, store, logger, set.collection, set.docs); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", set.collection, err))
			logger.Warn("seeding collection failed", "collection", set.collection, "error", err)
		}
	}
	return errors.Join(errs...)
}

func settingsSingleton(ctx context.Context, store docstore.Store, logger *slog.Logger) error {
	_, err := store.FindOne(ctx, schema.Settings, schema.SettingsID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	logger.Info("seeding settings singleton")
	return store.Insert(ctx, schema.Settings, DefaultSettings())
}

func emptyCollection(ctx context.Context, store docstore.Store, logger *slog.Logger, collection string, docs []docstore.Document) error {
	count, err := store.Count(ctx, collection, nil)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	logger.Info("seeding collection", "collection", collection, "documents", len(docs))
	return store.BulkInsert(ctx, collection, docs)
}
