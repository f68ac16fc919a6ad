package license_test

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks EventPublisher,RevocationList

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sonoreport/internal/identity"
	"sonoreport/internal/license"
	"sonoreport/internal/license/mocks"
)

const testDuration = 30 * 24 * time.Hour

type LicenseServiceSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	subs       *license.InMemorySubscriptionStore
	identities *identity.Service
	events     *mocks.MockEventPublisher
	revoked    *mocks.MockRevocationList
	service    *license.Service
	now        time.Time
}

func TestLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(LicenseServiceSuite))
}

func (s *LicenseServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.subs = license.NewInMemorySubscriptionStore()
	s.events = mocks.NewMockEventPublisher(s.ctrl)
	s.revoked = mocks.NewMockRevocationList(s.ctrl)
	s.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tokens := identity.NewTokenService("test-key", "sonoreport")
	identities, err := identity.NewService(identity.NewInMemoryStore(), tokens)
	s.Require().NoError(err)
	s.identities = identities

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := license.NewService(s.subs, identities, s.revoked, s.events, logger, testDuration, 2)
	s.Require().NoError(err)
	s.service = svc.WithClock(func() time.Time { return s.now })
}

func (s *LicenseServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LicenseServiceSuite) createLicense(plan string) string {
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e license.Event) {
		s.Equal(license.EventLicenseCreated, e.Type)
		s.Equal(plan, e.Plan)
	})
	result, err := s.service.CreateLicense(s.ctx, license.CreateLicenseInput{
		Email:      "vet@example.com",
		Password:   "hunter22",
		Plan:       plan,
		Practice:   "vet",
		VetName:    "Dra. Souza",
		ClinicName: "VetSono",
	})
	s.Require().NoError(err)
	return result.UID
}

func (s *LicenseServiceSuite) TestCreateLicense() {
	uid := s.createLicense(license.PlanFullVet)

	sub, err := s.service.Lookup(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal(license.StatusActive, sub.Status)
	s.Equal(s.now, sub.StartDate)
	s.Equal(s.now.Add(testDuration), sub.ExpirationDate)
	s.Empty(sub.DeviceIDs)
	s.Equal(2, sub.MaxDevices)

	user, err := s.identities.Lookup(s.ctx, uid)
	s.Require().NoError(err)
	s.True(user.Claims.LicenseActive)
	s.Equal("vet", user.Claims.Practice)
	s.Equal(license.PlanModules(license.PlanFullVet), user.Claims.Modules)

	s.Run("re-issuing for the same email reuses the account", func() {
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any())
		result, err := s.service.CreateLicense(s.ctx, license.CreateLicenseInput{
			Email:    "vet@example.com",
			Password: "ignored",
			Plan:     license.PlanBasic,
			Practice: "vet",
		})
		s.NoError(err)
		s.Equal(uid, result.UID)

		user, err := s.identities.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.Equal(license.PlanModules(license.PlanBasic), user.Claims.Modules)
	})
}

func (s *LicenseServiceSuite) TestPlanModules() {
	s.Contains(license.PlanModules(license.PlanFullVet), "lab_vet")
	s.NotContains(license.PlanModules(license.PlanFullVet), "ophthalmo_human")
	s.Contains(license.PlanModules(license.PlanFullHuman), "ophthalmo_human")
	s.NotContains(license.PlanModules(license.PlanFullHuman), "lab_vet")
	s.Equal([]string{"core"}, license.PlanModules("mystery_plan"))
}

func (s *LicenseServiceSuite) TestVerifyDevice() {
	uid := s.createLicense(license.PlanFullVet)

	s.Run("first device registers", func() {
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e license.Event) {
			s.Equal(license.EventDeviceRegistered, e.Type)
			s.Equal("device-a", e.DeviceID)
		})
		result, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
		s.NoError(err)
		s.True(result.Allowed())
		s.Equal(license.VerifyStatusNewDevice, result.Status)
	})

	s.Run("known device verifies without an event", func() {
		result, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
		s.NoError(err)
		s.True(result.Allowed())
		s.Equal(license.VerifyStatusVerified, result.Status)
	})

	s.Run("second device registers", func() {
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any())
		result, err := s.service.VerifyDevice(s.ctx, uid, "device-b")
		s.NoError(err)
		s.True(result.Allowed())
	})

	s.Run("third device hits the cap", func() {
		result, err := s.service.VerifyDevice(s.ctx, uid, "device-c")
		s.NoError(err)
		s.False(result.Allowed())
		s.Equal(license.VerifyReasonDeviceLimit, result.Reason)

		sub, err := s.service.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.Len(sub.DeviceIDs, 2)
	})

	s.Run("unknown account", func() {
		_, err := s.service.VerifyDevice(s.ctx, "ghost", "device-a")
		s.ErrorIs(err, license.ErrSubscriptionNotFound)
	})
}

func (s *LicenseServiceSuite) TestVerifyDeviceExpiry() {
	uid := s.createLicense(license.PlanFullVet)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any())
	_, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
	s.Require().NoError(err)

	// Jump past the expiration date. Expiry wins even for a bound device,
	// but verify only reports the lapse; the sweep owns the status flip.
	s.now = s.now.Add(testDuration + time.Hour)

	result, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
	s.NoError(err)
	s.False(result.Allowed())
	s.Equal(license.VerifyReasonExpired, result.Reason)

	sub, err := s.service.Lookup(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal(license.StatusActive, sub.Status)

	user, err := s.identities.Lookup(s.ctx, uid)
	s.Require().NoError(err)
	s.True(user.Claims.LicenseActive)

	s.Run("repeated verifies keep denying without side effects", func() {
		result, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
		s.NoError(err)
		s.Equal(license.VerifyReasonExpired, result.Reason)

		sub, err := s.service.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.Equal(license.StatusActive, sub.Status)
	})

	s.Run("the sweep flips it and verify still denies", func() {
		s.revoked.EXPECT().Revoke(gomock.Any(), uid, gomock.Any()).Return(nil)
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any())

		count, err := s.service.PruneExpiredLicenses(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, count)

		sub, err := s.service.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.Equal(license.StatusExpired, sub.Status)

		user, err := s.identities.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.False(user.Claims.LicenseActive)

		result, err := s.service.VerifyDevice(s.ctx, uid, "device-a")
		s.NoError(err)
		s.Equal(license.VerifyReasonExpired, result.Reason)
	})
}

func (s *LicenseServiceSuite) TestPruneExpiredLicenses() {
	uid := s.createLicense(license.PlanFullVet)

	s.Run("nothing to prune", func() {
		count, err := s.service.PruneExpiredLicenses(s.ctx)
		s.NoError(err)
		s.Zero(count)
	})

	s.Run("lapsed subscription is flipped, deactivated, revoked, published", func() {
		s.now = s.now.Add(testDuration + time.Hour)
		s.revoked.EXPECT().Revoke(gomock.Any(), uid, gomock.Any()).Return(nil)
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e license.Event) {
			s.Equal(license.EventLicenseExpired, e.Type)
			s.Equal(uid, e.UID)
		})

		count, err := s.service.PruneExpiredLicenses(s.ctx)
		s.NoError(err)
		s.Equal(1, count)

		sub, err := s.service.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.Equal(license.StatusExpired, sub.Status)

		user, err := s.identities.Lookup(s.ctx, uid)
		s.Require().NoError(err)
		s.False(user.Claims.LicenseActive)
	})

	s.Run("second sweep finds nothing", func() {
		count, err := s.service.PruneExpiredLicenses(s.ctx)
		s.NoError(err)
		s.Zero(count)
	})
}

func (s *LicenseServiceSuite) TestAddDeviceRace() {
	// Two logins from the same new device: the loser of the AddDevice race
	// still gets a verified result, not a denial.
	uid := s.createLicense(license.PlanFullVet)
	added, err := s.subs.AddDevice(s.ctx, uid, "device-a")
	s.Require().NoError(err)
	s.Require().True(added)

	again, err := s.subs.AddDevice(s.ctx, uid, "device-a")
	s.NoError(err)
	s.False(again)

	sub, err := s.subs.Get(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal([]string{"device-a"}, sub.DeviceIDs)
}
