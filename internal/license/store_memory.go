package license

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemorySubscriptionStore backs unit tests and dev deployments. The mutex
// makes AddDevice's check-and-append atomic, matching the postgres
// implementation's guarded update.
type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[string]Subscription)}
}

func (s *InMemorySubscriptionStore) Create(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UID] = cloneSubscription(sub)
	return nil
}

func (s *InMemorySubscriptionStore) Get(_ context.Context, uid string) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[uid]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return cloneSubscription(sub), nil
}

func (s *InMemorySubscriptionStore) AddDevice(_ context.Context, uid, deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[uid]
	if !ok {
		return false, ErrSubscriptionNotFound
	}
	if sub.HasDevice(deviceID) {
		return false, nil
	}
	if len(sub.DeviceIDs) >= sub.MaxDevices {
		return false, fmt.Errorf("%w: %d", ErrDeviceLimit, sub.MaxDevices)
	}
	// Fresh slice, never an in-place append: prior Get snapshots must stay
	// untouched.
	devices := make([]string, 0, len(sub.DeviceIDs)+1)
	devices = append(devices, sub.DeviceIDs...)
	devices = append(devices, deviceID)
	sub.DeviceIDs = devices
	s.subs[uid] = sub
	return true, nil
}

func (s *InMemorySubscriptionStore) ListExpired(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var uids []string
	for uid, sub := range s.subs {
		if sub.Status == StatusActive && sub.ExpirationDate.Before(now) {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (s *InMemorySubscriptionStore) MarkExpired(_ context.Context, uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		if sub, ok := s.subs[uid]; ok {
			sub.Status = StatusExpired
			s.subs[uid] = sub
		}
	}
	return nil
}

func cloneSubscription(sub Subscription) Subscription {
	sub.DeviceIDs = append([]string(nil), sub.DeviceIDs...)
	return sub
}
