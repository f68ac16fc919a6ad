// Package studio is the local desktop backend: it owns the embedded document
// store, seeds defaults on first run, resolves the practice context, and
// serves the loopback API the UI shell talks to.
package studio

import (
	"context"
	"fmt"
	"log/slog"

	"sonoreport/internal/docstore"
	"sonoreport/internal/docstore/migrate"
	"sonoreport/internal/identity"
	"sonoreport/internal/platform/config"
	"sonoreport/internal/practice"
	"sonoreport/internal/records"
	"sonoreport/internal/schema"
	"sonoreport/internal/seed"
)

// App is the booted studio backend.
type App struct {
	Store    docstore.Store
	Records  *records.Service
	Practice *practice.Manager
	Context  practice.Context
	DeviceID string

	logger *slog.Logger
}

// Boot runs the startup sequence: open the store (migrating any documents
// written by older releases before anything reads them), seed defaults, then
// resolve the practice context. A cached license token provides claims when
// present; otherwise the settings cache decides.
func Boot(ctx context.Context, cfg config.Studio, logger *slog.Logger) (*App, error) {
	store, err := docstore.OpenSQLite(ctx, cfg.DataPath, schema.NewRegistry(), migrate.Default(), logger)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	if err := seed.Run(ctx, store, logger); err != nil {
		// Partial seeding is survivable; the app runs with whatever exists.
		logger.Warn("seeding incomplete", "error", err)
	}

	recordsSvc := records.New(store, logger)
	manager := practice.NewManager(recordsSvc, logger)

	pctx, err := manager.Resolve(ctx, claimsFromToken(cfg, logger))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolve practice context: %w", err)
	}

	logger.Info("studio booted",
		"practice", pctx.Practice,
		"modules", pctx.Modules,
		"data_path", cfg.DataPath,
	)
	return &App{
		Store:    store,
		Records:  recordsSvc,
		Practice: manager,
		Context:  pctx,
		DeviceID: DeviceID(cfg.DeviceIDFile),
		logger:   logger,
	}, nil
}

// Close releases the document store.
func (a *App) Close() error {
	return a.Store.Close()
}

// claimsFromToken unpacks practice claims from a cached license session
// token. An unparseable or absent token simply means no claims: offline
// starts fall back to the settings cache.
func claimsFromToken(cfg config.Studio, logger *slog.Logger) *practice.Claims {
	if cfg.LicenseToken == "" {
		return nil
	}
	tokens := identity.NewTokenService(cfg.JWTSigningKey, "sonoreport")
	claims, err := tokens.Verify(cfg.LicenseToken)
	if err != nil {
		logger.Warn("cached license token rejected, using settings cache", "error", err)
		return nil
	}
	if !claims.LicenseActive {
		logger.Warn("cached license inactive, using settings cache")
		return nil
	}
	return &practice.Claims{
		Practice: claims.Practice,
		Modules:  append([]string(nil), claims.Modules...),
	}
}
