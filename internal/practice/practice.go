// Package practice resolves which practice type (veterinary or human) a
// session runs as and which feature modules it may use. License claims are
// the source of truth; the local settings singleton is a cache that keeps the
// app usable offline.
package practice

import (
	"context"
	"log/slog"
	"slices"

	"sonoreport/internal/records"
	"sonoreport/internal/schema"
)

// Module names.
const (
	ModuleCore           = "core"
	ModuleUltrasound     = "ultrasound"
	ModuleCardio         = "cardio"
	ModulePrescription   = "prescription"
	ModuleLabVet         = "lab_vet"
	ModuleOphthalmoHuman = "ophthalmo_human"
	ModuleFinancial      = "financial"
)

// Context is the resolved practice state for a session.
type Context struct {
	Practice string
	Modules  []string
}

// Claims is the license-derived practice state, typically unpacked from a
// session token. Nil means no license information is available.
type Claims struct {
	Practice string
	Modules  []string
}

// Manager reconciles license claims with the cached settings and answers
// module gating questions.
type Manager struct {
	records *records.Service
	logger  *slog.Logger
}

func NewManager(records *records.Service, logger *slog.Logger) *Manager {
	return &Manager{records: records, logger: logger}
}

// Resolve computes the session context. Claims win over the cache; when
// present they are also pushed down into settings so the next offline start
// sees the same state. A push failure degrades to the in-memory context.
func (m *Manager) Resolve(ctx context.Context, claims *Claims) (Context, error) {
	if claims != nil && claims.Practice != "" {
		resolved := Context{
			Practice: claims.Practice,
			Modules:  normalizeModules(claims.Modules),
		}
		_, err := m.records.UpdateSettings(ctx, map[string]any{
			"practice_type":  resolved.Practice,
			"active_modules": append([]string(nil), resolved.Modules...),
		})
		if err != nil {
			m.logger.Error("cache practice context in settings", "error", err)
		}
		return resolved, nil
	}

	settings, err := m.records.GetSettings(ctx)
	if err != nil {
		return Context{}, err
	}
	return contextFromSettings(settings), nil
}

// HasModule reports whether the module is usable in this context. core is
// always on; the two practice-locked modules are forced off when the
// practice does not match, even if the enabled set lists them.
func (c Context) HasModule(name string) bool {
	switch name {
	case ModuleCore:
		return true
	case ModuleLabVet:
		if c.Practice != schema.PracticeVet {
			return false
		}
	case ModuleOphthalmoHuman:
		if c.Practice != schema.PracticeHuman {
			return false
		}
	}
	return slices.Contains(c.Modules, name)
}

// SwitchPractice changes the practice type and unions the practice's module
// bundle into the enabled set. The set only ever grows: modules earned under
// the previous practice stay enabled (practice-locked ones are still gated by
// HasModule). The result is persisted and returned as a freshly built slice.
func (m *Manager) SwitchPractice(ctx context.Context, current Context, newType string) (Context, error) {
	bundle := []string{ModuleCore, ModulePrescription, ModuleFinancial}
	switch newType {
	case schema.PracticeHuman:
		bundle = append(bundle, ModuleOphthalmoHuman)
	default:
		newType = schema.PracticeVet
		bundle = append(bundle, ModuleCardio, ModuleLabVet)
	}

	merged := normalizeModules(append(bundle, current.Modules...))
	next := Context{Practice: newType, Modules: merged}

	_, err := m.records.UpdateSettings(ctx, map[string]any{
		"practice_type":  newType,
		"active_modules": append([]string(nil), merged...),
	})
	if err != nil {
		return Context{}, err
	}
	m.logger.Info("practice switched", "practice", newType, "modules", merged)
	return next, nil
}

func contextFromSettings(settings map[string]any) Context {
	c := Context{Practice: schema.PracticeVet, Modules: []string{ModuleCore}}
	if p, ok := settings["practice_type"].(string); ok && p != "" {
		c.Practice = p
	}
	if raw, ok := settings["active_modules"]; ok {
		if mods := toStringSlice(raw); len(mods) > 0 {
			c.Modules = normalizeModules(mods)
		}
	}
	return c
}

// normalizeModules returns a sorted, deduplicated copy that never aliases the
// input.
func normalizeModules(mods []string) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		if m != "" {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
