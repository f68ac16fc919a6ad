package practice

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"sonoreport/internal/docstore"
	"sonoreport/internal/docstore/migrate"
	"sonoreport/internal/records"
	"sonoreport/internal/schema"
)

type PracticeSuite struct {
	suite.Suite
	ctx     context.Context
	records *records.Service
	manager *Manager
}

func TestPracticeSuite(t *testing.T) {
	suite.Run(t, new(PracticeSuite))
}

func (s *PracticeSuite) SetupTest() {
	s.ctx = context.Background()
	store := docstore.NewMemory(schema.NewRegistry(), migrate.Default())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.records = records.New(store, logger)
	s.manager = NewManager(s.records, logger)
}

func (s *PracticeSuite) TestResolve() {
	s.Run("claims are authoritative and cached into settings", func() {
		pctx, err := s.manager.Resolve(s.ctx, &Claims{
			Practice: schema.PracticeHuman,
			Modules:  []string{"ophthalmo_human", "core", "core"},
		})
		s.Require().NoError(err)
		s.Equal(schema.PracticeHuman, pctx.Practice)
		s.Equal([]string{"core", "ophthalmo_human"}, pctx.Modules)

		settings, err := s.records.GetSettings(s.ctx)
		s.Require().NoError(err)
		s.Equal(schema.PracticeHuman, settings["practice_type"])
	})

	s.Run("no claims falls back to the cached settings", func() {
		pctx, err := s.manager.Resolve(s.ctx, nil)
		s.Require().NoError(err)
		s.Equal(schema.PracticeHuman, pctx.Practice)
		s.Contains(pctx.Modules, "ophthalmo_human")
	})

	s.Run("empty claims struct counts as absent", func() {
		pctx, err := s.manager.Resolve(s.ctx, &Claims{})
		s.Require().NoError(err)
		s.Equal(schema.PracticeHuman, pctx.Practice)
	})
}

func (s *PracticeSuite) TestResolveDefaultsWithEmptyCache() {
	// Fresh settings singleton carries vet defaults, so first resolve
	// without claims lands on those.
	pctx, err := s.manager.Resolve(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(schema.PracticeVet, pctx.Practice)
	s.Contains(pctx.Modules, ModuleCore)
}

func (s *PracticeSuite) TestHasModule() {
	vet := Context{Practice: schema.PracticeVet, Modules: []string{"core", "ultrasound", "lab_vet", "ophthalmo_human"}}
	human := Context{Practice: schema.PracticeHuman, Modules: []string{"core", "lab_vet", "ophthalmo_human"}}

	s.Run("core is always enabled", func() {
		s.True(Context{}.HasModule(ModuleCore))
	})

	s.Run("plain membership", func() {
		s.True(vet.HasModule(ModuleUltrasound))
		s.False(vet.HasModule(ModuleCardio))
	})

	s.Run("lab_vet is locked to vet practice", func() {
		s.True(vet.HasModule(ModuleLabVet))
		s.False(human.HasModule(ModuleLabVet))
	})

	s.Run("ophthalmo_human is locked to human practice", func() {
		s.True(human.HasModule(ModuleOphthalmoHuman))
		s.False(vet.HasModule(ModuleOphthalmoHuman))
	})
}

func (s *PracticeSuite) TestSwitchPracticeNeverShrinks() {
	start, err := s.manager.Resolve(s.ctx, &Claims{
		Practice: schema.PracticeVet,
		Modules:  []string{"core", "ultrasound", "cardio", "lab_vet"},
	})
	s.Require().NoError(err)

	human, err := s.manager.SwitchPractice(s.ctx, start, schema.PracticeHuman)
	s.Require().NoError(err)
	s.Equal(schema.PracticeHuman, human.Practice)
	// Human bundle joined the set; nothing earned under vet was dropped.
	s.Subset(human.Modules, start.Modules)
	s.Contains(human.Modules, ModuleOphthalmoHuman)
	s.Contains(human.Modules, ModulePrescription)
	s.Contains(human.Modules, ModuleFinancial)
	s.Contains(human.Modules, ModuleLabVet)

	backToVet, err := s.manager.SwitchPractice(s.ctx, human, schema.PracticeVet)
	s.Require().NoError(err)
	s.Subset(backToVet.Modules, human.Modules)

	s.Run("result is sorted and deduplicated", func() {
		s.IsIncreasing(backToVet.Modules)
	})

	s.Run("result never aliases the input slice", func() {
		human.Modules[0] = "mutated"
		s.NotContains(backToVet.Modules, "mutated")
	})

	s.Run("switch persists to settings", func() {
		settings, err := s.records.GetSettings(s.ctx)
		s.Require().NoError(err)
		s.Equal(schema.PracticeVet, settings["practice_type"])
	})

	s.Run("gated modules stay in the set while gated off", func() {
		s.Contains(backToVet.Modules, ModuleOphthalmoHuman)
		s.False(backToVet.HasModule(ModuleOphthalmoHuman))
		s.True(backToVet.HasModule(ModuleLabVet))
	})
}
