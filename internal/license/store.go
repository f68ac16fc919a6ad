package license

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSubscriptionNotFound is returned when no subscription exists for a
	// user.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDeviceLimit signals that the device cap was reached during an
	// atomic add.
	ErrDeviceLimit = errors.New("device limit reached")
)

// SubscriptionStore persists license subscriptions.
//
// AddDevice is the concurrency-sensitive operation: implementations must
// serialize the cap check and the set-union append as one atomic step, so
// two near-simultaneous logins from different new devices can never push
// the bound set past MaxDevices. Adding an already-bound device is a no-op
// reported as added=false.
type SubscriptionStore interface {
	Create(ctx context.Context, sub Subscription) error
	Get(ctx context.Context, uid string) (Subscription, error)
	AddDevice(ctx context.Context, uid, deviceID string) (added bool, err error)
	// ListExpired returns uids of active subscriptions whose expiration is
	// before now.
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
	// MarkExpired flips the listed subscriptions to expired in one batched
	// write.
	MarkExpired(ctx context.Context, uids []string) error
}
