package migrate

import (
	"fmt"

	"sonoreport/internal/schema"
)

// passThrough covers version bumps where only validation rules changed, not
// field shapes.
func passThrough(doc map[string]any) (map[string]any, error) {
	return doc, nil
}

// Default returns the registered strategies for every collection whose
// schema has evolved:
//
//	patients  0->1            validation-only bump
//	settings  0->1->2         validation-only bumps
//	exams     0->1->2->3      validation-only bumps
//	ophthalmo 0->1            flat diagnosis split into per-eye fields
func Default() Set {
	return Set{
		schema.Patients: Chain{
			0: passThrough,
		},
		schema.Settings: Chain{
			0: passThrough,
			1: passThrough,
		},
		schema.Exams: Chain{
			0: passThrough,
			1: passThrough,
			2: passThrough,
		},
		schema.Ophthalmo: Chain{
			0: migrateOphthalmoFlat,
		},
	}
}

// migrateOphthalmoFlat lifts the legacy flat ophthalmology record into the
// per-eye shape. The flat diagnosis is copied to both eyes and preserved
// verbatim under diagnosis_legacy; the flat visual string stays valid as the
// text arm of the visual union.
func migrateOphthalmoFlat(doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	if raw, ok := doc["diagnosis"]; ok {
		diagnosis, isStr := raw.(string)
		if !isStr && raw != nil {
			return nil, fmt.Errorf("flat diagnosis must be a string, got %T", raw)
		}
		delete(out, "diagnosis")
		if _, set := out["diagnosis_od"]; !set {
			out["diagnosis_od"] = diagnosis
		}
		if _, set := out["diagnosis_os"]; !set {
			out["diagnosis_os"] = diagnosis
		}
		out["diagnosis_legacy"] = diagnosis
	}
	if raw, ok := doc["visual_data"]; ok {
		if _, err := schema.VisualFromValue(raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}
