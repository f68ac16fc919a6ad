package schema

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ValidateSuite struct {
	suite.Suite
	registry *Registry
}

func TestValidateSuite(t *testing.T) {
	suite.Run(t, new(ValidateSuite))
}

func (s *ValidateSuite) SetupTest() {
	s.registry = NewRegistry()
}

func (s *ValidateSuite) def(name string) Definition {
	def, err := s.registry.Get(name)
	s.Require().NoError(err)
	return def
}

func (s *ValidateSuite) TestRequiredFields() {
	def := s.def(Patients)

	s.Run("complete document passes", func() {
		s.NoError(Validate(def, map[string]any{"id": "p1", "name": "Rex"}))
	})

	s.Run("missing required field fails", func() {
		err := Validate(def, map[string]any{"id": "p1"})
		var verr *ValidationError
		s.ErrorAs(err, &verr)
		s.Equal("name", verr.Field)
	})

	s.Run("nil required field fails", func() {
		err := Validate(def, map[string]any{"id": "p1", "name": nil})
		s.Error(err)
	})

	s.Run("empty primary key fails", func() {
		err := Validate(def, map[string]any{"id": "", "name": "Rex"})
		var verr *ValidationError
		s.ErrorAs(err, &verr)
		s.Equal("id", verr.Field)
	})
}

func (s *ValidateSuite) TestUnknownFields() {
	def := s.def(Drugs)
	err := Validate(def, map[string]any{"id": "d1", "name": "Meloxicam", "color": "blue"})
	var verr *ValidationError
	s.ErrorAs(err, &verr)
	s.Equal("color", verr.Field)
	s.Equal("unknown field", verr.Reason)
}

func (s *ValidateSuite) TestKindChecks() {
	def := s.def(Patients)

	s.Run("wrong type for string field", func() {
		s.Error(Validate(def, map[string]any{"id": "p1", "name": 42}))
	})

	s.Run("decoded JSON number accepted for number field", func() {
		s.NoError(Validate(def, map[string]any{"id": "p1", "name": "Rex", "weight": 12.5}))
	})

	s.Run("native int accepted for number field", func() {
		s.NoError(Validate(def, map[string]any{"id": "p1", "name": "Rex", "weight": 12}))
	})

	s.Run("enum rejects unknown value", func() {
		err := Validate(def, map[string]any{"id": "p1", "name": "Rex", "sex": "other"})
		var verr *ValidationError
		s.ErrorAs(err, &verr)
		s.Equal("sex", verr.Field)
	})

	s.Run("bool field rejects string", func() {
		s.Error(Validate(def, map[string]any{"id": "p1", "name": "Rex", "is_neutered": "yes"}))
	})

	s.Run("optional field may be nil", func() {
		s.NoError(Validate(def, map[string]any{"id": "p1", "name": "Rex", "breed": nil}))
	})
}

func (s *ValidateSuite) TestStringArrays() {
	def := s.def(Settings)

	s.Run("native string slice", func() {
		s.NoError(Validate(def, map[string]any{
			"id":             SettingsID,
			"active_modules": []string{"core", "ultrasound"},
		}))
	})

	s.Run("decoded JSON array of strings", func() {
		s.NoError(Validate(def, map[string]any{
			"id":             SettingsID,
			"active_modules": []any{"core", "ultrasound"},
		}))
	})

	s.Run("mixed array rejected", func() {
		s.Error(Validate(def, map[string]any{
			"id":             SettingsID,
			"active_modules": []any{"core", 7},
		}))
	})
}

func (s *ValidateSuite) TestVisualUnionInOrgansData() {
	def := s.def(Exams)
	base := func(visual any) map[string]any {
		return map[string]any{
			"id":         "e1",
			"patient_id": "p1",
			"organs_data": []any{
				map[string]any{"organ": "liver", "visual_data": visual},
			},
		}
	}

	s.Run("text payload", func() {
		s.NoError(Validate(def, base("data:image/png;base64,AAAA")))
	})

	s.Run("shape map payload", func() {
		s.NoError(Validate(def, base(map[string]any{"grid": []any{1.0, 2.0}})))
	})

	s.Run("stroke list payload", func() {
		s.NoError(Validate(def, base([]any{map[string]any{"x": 1.0}})))
	})

	s.Run("null payload", func() {
		s.NoError(Validate(def, base(nil)))
	})

	s.Run("numeric payload rejected", func() {
		err := Validate(def, base(3.14))
		var verr *ValidationError
		s.ErrorAs(err, &verr)
		s.Equal("organs_data", verr.Field)
	})
}

func (s *ValidateSuite) TestRegistryLookup() {
	s.Run("every collection resolves", func() {
		for _, name := range []string{Patients, Settings, Exams, Ophthalmo, Drugs,
			Prescriptions, Templates, ReferenceValues, Profiles, Financial, LabExams} {
			def, err := s.registry.Get(name)
			s.NoError(err)
			s.Equal(name, def.Name)
			s.Equal("id", def.PrimaryKey)
		}
	})

	s.Run("unknown collection", func() {
		_, err := s.registry.Get("unicorns")
		s.ErrorIs(err, ErrCollectionNotFound)
	})

	s.Run("names are sorted and complete", func() {
		names := s.registry.Names()
		s.Len(names, 11)
		s.IsType([]string{}, names)
	})
}
