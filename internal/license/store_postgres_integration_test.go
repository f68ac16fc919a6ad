//go:build integration

package license_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sonoreport/internal/license"
	"sonoreport/pkg/testutil/containers"
)

const subscriptionsDDL = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		uid             TEXT PRIMARY KEY,
		email           TEXT NOT NULL,
		clinic_name     TEXT NOT NULL DEFAULT '',
		plan            TEXT NOT NULL,
		status          TEXT NOT NULL,
		start_date      TIMESTAMPTZ NOT NULL,
		expiration_date TIMESTAMPTZ NOT NULL,
		device_ids      TEXT[] NOT NULL DEFAULT '{}',
		max_devices     INT NOT NULL
	)`

type PostgresSubscriptionStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *license.PostgresSubscriptionStore
}

func TestPostgresSubscriptionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSubscriptionStoreSuite))
}

func (s *PostgresSubscriptionStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.postgres.ApplySchema(context.Background(), subscriptionsDDL))
	s.store = license.NewPostgresSubscriptionStore(s.postgres.DB)
}

func (s *PostgresSubscriptionStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(context.Background(), `TRUNCATE subscriptions`)
	s.Require().NoError(err)
}

func newTestSubscription(maxDevices int) license.Subscription {
	now := time.Now().UTC()
	return license.Subscription{
		UID:            uuid.NewString(),
		Email:          "vet@example.com",
		ClinicName:     "VetSono",
		Plan:           license.PlanFullVet,
		Status:         license.StatusActive,
		StartDate:      now,
		ExpirationDate: now.Add(30 * 24 * time.Hour),
		DeviceIDs:      []string{},
		MaxDevices:     maxDevices,
	}
}

func (s *PostgresSubscriptionStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sub := newTestSubscription(2)
	s.Require().NoError(s.store.Create(ctx, sub))

	got, err := s.store.Get(ctx, sub.UID)
	s.Require().NoError(err)
	s.Equal(sub.UID, got.UID)
	s.Equal(sub.Plan, got.Plan)
	s.Equal(license.StatusActive, got.Status)
	s.Empty(got.DeviceIDs)
	s.WithinDuration(sub.ExpirationDate, got.ExpirationDate, time.Millisecond)

	s.Run("create is an upsert", func() {
		sub.Plan = license.PlanBasic
		s.Require().NoError(s.store.Create(ctx, sub))
		got, err := s.store.Get(ctx, sub.UID)
		s.Require().NoError(err)
		s.Equal(license.PlanBasic, got.Plan)
	})

	s.Run("unknown uid", func() {
		_, err := s.store.Get(ctx, uuid.NewString())
		s.ErrorIs(err, license.ErrSubscriptionNotFound)
	})
}

// TestConcurrentAddSameDevice verifies that concurrent logins from one new
// device register it exactly once.
func (s *PostgresSubscriptionStoreSuite) TestConcurrentAddSameDevice() {
	ctx := context.Background()
	sub := newTestSubscription(2)
	s.Require().NoError(s.store.Create(ctx, sub))

	const goroutines = 50
	var wg sync.WaitGroup
	var added, alreadyBound atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.AddDevice(ctx, sub.UID, "device-a")
			if err != nil {
				return
			}
			if ok {
				added.Add(1)
			} else {
				alreadyBound.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), added.Load(), "exactly one add should win")
	s.Equal(int32(goroutines-1), alreadyBound.Load(), "losers must see the device as bound, not denied")

	got, err := s.store.Get(ctx, sub.UID)
	s.Require().NoError(err)
	s.Equal([]string{"device-a"}, got.DeviceIDs)
}

// TestConcurrentDeviceCap verifies that the device cap holds when many
// distinct devices race for the remaining slots.
func (s *PostgresSubscriptionStoreSuite) TestConcurrentDeviceCap() {
	ctx := context.Background()
	sub := newTestSubscription(2)
	s.Require().NoError(s.store.Create(ctx, sub))

	const goroutines = 20
	var wg sync.WaitGroup
	var added, denied atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.AddDevice(ctx, sub.UID, "device-"+uuid.NewString())
			switch {
			case err == nil && ok:
				added.Add(1)
			case errors.Is(err, license.ErrDeviceLimit):
				denied.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(2), added.Load(), "slots filled exactly to the cap")
	s.Equal(int32(goroutines-2), denied.Load())

	got, err := s.store.Get(ctx, sub.UID)
	s.Require().NoError(err)
	s.Len(got.DeviceIDs, 2)
}

func (s *PostgresSubscriptionStoreSuite) TestAddDeviceUnknownUID() {
	_, err := s.store.AddDevice(context.Background(), uuid.NewString(), "device-a")
	s.ErrorIs(err, license.ErrSubscriptionNotFound)
}

func (s *PostgresSubscriptionStoreSuite) TestExpirySweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := newTestSubscription(2)
	lapsed.ExpirationDate = now.Add(-time.Hour)
	current := newTestSubscription(2)
	s.Require().NoError(s.store.Create(ctx, lapsed))
	s.Require().NoError(s.store.Create(ctx, current))

	uids, err := s.store.ListExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal([]string{lapsed.UID}, uids)

	s.Require().NoError(s.store.MarkExpired(ctx, uids))

	got, err := s.store.Get(ctx, lapsed.UID)
	s.Require().NoError(err)
	s.Equal(license.StatusExpired, got.Status)

	s.Run("marked rows leave the sweep", func() {
		uids, err := s.store.ListExpired(ctx, now)
		s.Require().NoError(err)
		s.Empty(uids)
	})

	s.Run("empty batch is a no-op", func() {
		s.NoError(s.store.MarkExpired(ctx, nil))
	})
}
