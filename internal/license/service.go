// Package license implements the cloud-side subscription service: issuance,
// device binding with a hard cap, expiry pruning, and the lifecycle events
// downstream tooling consumes.
package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sonoreport/internal/identity"
)

var tracer = otel.Tracer("sonoreport/license")

// revocationTTL bounds how long a pruned uid stays on the revocation list.
// Any session token issued before the prune has expired by then.
const revocationTTL = 48 * time.Hour

// Service owns the license lifecycle.
type Service struct {
	subs       SubscriptionStore
	identities *identity.Service
	revoked    RevocationList
	events     EventPublisher
	logger     *slog.Logger

	duration   time.Duration
	maxDevices int
	now        func() time.Time
}

// NewService constructs the license service. revoked and events may be the
// noop implementations when Redis or Kafka are not configured.
func NewService(subs SubscriptionStore, identities *identity.Service, revoked RevocationList, events EventPublisher, logger *slog.Logger, duration time.Duration, maxDevices int) (*Service, error) {
	if subs == nil {
		return nil, errors.New("subscription store is required")
	}
	if identities == nil {
		return nil, errors.New("identity service is required")
	}
	if revoked == nil {
		revoked = NoopRevocationList{}
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &Service{
		subs:       subs,
		identities: identities,
		revoked:    revoked,
		events:     events,
		logger:     logger,
		duration:   duration,
		maxDevices: maxDevices,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateLicense provisions the account and its subscription, then stamps the
// plan's module claims onto the user.
//
// The account write and the subscription write are separate stores, so a
// crash in between leaves an account without a subscription. That partial
// state is logged at Error level and surfaces as a verification failure on
// the client; re-running issuance for the same email repairs it.
func (s *Service) CreateLicense(ctx context.Context, in CreateLicenseInput) (CreateLicenseResult, error) {
	ctx, span := tracer.Start(ctx, "license.Create", trace.WithAttributes(
		attribute.String("license.plan", in.Plan),
	))
	defer span.End()

	user, created, err := s.identities.GetOrCreate(ctx, in.Email, in.Password, in.VetName)
	if err != nil {
		return CreateLicenseResult{}, fmt.Errorf("provision account: %w", err)
	}

	now := s.now().UTC()
	sub := Subscription{
		UID:            user.ID,
		Email:          in.Email,
		ClinicName:     in.ClinicName,
		Plan:           in.Plan,
		Status:         StatusActive,
		StartDate:      now,
		ExpirationDate: now.Add(s.duration),
		DeviceIDs:      []string{},
		MaxDevices:     s.maxDevices,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		s.logger.Error("account exists without subscription",
			"uid", user.ID, "email", in.Email, "error", err)
		return CreateLicenseResult{}, fmt.Errorf("create subscription: %w", err)
	}

	claims := identity.Claims{
		Practice:      in.Practice,
		Modules:       PlanModules(in.Plan),
		Plan:          in.Plan,
		LicenseActive: true,
	}
	if err := s.identities.SetClaims(ctx, user.ID, claims); err != nil {
		s.logger.Error("subscription exists without claims",
			"uid", user.ID, "error", err)
		return CreateLicenseResult{}, fmt.Errorf("set claims: %w", err)
	}

	licensesIssued.WithLabelValues(in.Plan).Inc()
	s.events.Publish(ctx, Event{
		Type:       EventLicenseCreated,
		UID:        user.ID,
		Plan:       in.Plan,
		OccurredAt: now,
	})

	msg := "license updated"
	if created {
		msg = "license created"
	}
	return CreateLicenseResult{UID: user.ID, Message: msg}, nil
}

// VerifyDevice checks whether the device may run under the user's license.
// Expiry wins over everything: a lapsed subscription is denied even when the
// device is already bound. Verify only reports the lapse; the prune sweep
// owns the status flip and claim revocation.
func (s *Service) VerifyDevice(ctx context.Context, uid, deviceID string) (VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "license.VerifyDevice")
	defer span.End()

	sub, err := s.subs.Get(ctx, uid)
	if err != nil {
		return VerifyResult{}, err
	}

	if sub.Status != StatusActive || sub.ExpirationDate.Before(s.now()) {
		deviceVerifications.WithLabelValues(VerifyReasonExpired).Inc()
		return VerifyResult{
			Success: false,
			Reason:  VerifyReasonExpired,
			Message: "subscription expired",
		}, nil
	}

	if sub.HasDevice(deviceID) {
		deviceVerifications.WithLabelValues(VerifyStatusVerified).Inc()
		return VerifyResult{Success: true, Status: VerifyStatusVerified}, nil
	}

	added, err := s.subs.AddDevice(ctx, uid, deviceID)
	if errors.Is(err, ErrDeviceLimit) {
		deviceVerifications.WithLabelValues(VerifyReasonDeviceLimit).Inc()
		return VerifyResult{
			Success: false,
			Reason:  VerifyReasonDeviceLimit,
			Message: fmt.Sprintf("device limit of %d reached", sub.MaxDevices),
		}, nil
	}
	if err != nil {
		return VerifyResult{}, err
	}
	if !added {
		// Lost a race with another login from this same device.
		deviceVerifications.WithLabelValues(VerifyStatusVerified).Inc()
		return VerifyResult{Success: true, Status: VerifyStatusVerified}, nil
	}

	deviceVerifications.WithLabelValues(VerifyStatusNewDevice).Inc()
	s.events.Publish(ctx, Event{
		Type:       EventDeviceRegistered,
		UID:        uid,
		Plan:       sub.Plan,
		DeviceID:   deviceID,
		OccurredAt: s.now().UTC(),
	})
	return VerifyResult{Success: true, Status: VerifyStatusNewDevice}, nil
}

// PruneExpiredLicenses flips every lapsed subscription to expired in one
// batch, then best-effort deactivates claims and revokes sessions per user.
// A claim or revocation failure never rolls back the batch flip; it is
// logged with the uid, and verify keeps denying the lapsed subscription by
// date regardless of claim state.
func (s *Service) PruneExpiredLicenses(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "license.PruneExpired")
	defer span.End()

	uids, err := s.subs.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}

	if err := s.subs.MarkExpired(ctx, uids); err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	licensesPruned.Add(float64(len(uids)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, uid := range uids {
		g.Go(func() error {
			s.deactivateClaims(gctx, uid)
			s.events.Publish(gctx, Event{
				Type:       EventLicenseExpired,
				UID:        uid,
				OccurredAt: s.now().UTC(),
			})
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("pruned expired licenses", "count", len(uids))
	return len(uids), nil
}

// Lookup returns the subscription for an account.
func (s *Service) Lookup(ctx context.Context, uid string) (Subscription, error) {
	return s.subs.Get(ctx, uid)
}

func (s *Service) deactivateClaims(ctx context.Context, uid string) {
	user, err := s.identities.Lookup(ctx, uid)
	if err != nil {
		s.logger.Error("lookup user for deactivation", "uid", uid, "error", err)
		return
	}
	claims := user.Claims
	claims.LicenseActive = false
	if err := s.identities.SetClaims(ctx, uid, claims); err != nil {
		s.logger.Error("deactivate claims", "uid", uid, "error", err)
	}
	if err := s.revoked.Revoke(ctx, uid, revocationTTL); err != nil {
		s.logger.Error("revoke sessions", "uid", uid, "error", err)
	}
}
