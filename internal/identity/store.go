package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound keeps identity lookups consistent across implementations.
var ErrUserNotFound = errors.New("user not found")

// Store persists user identities. Implementations are interface-driven so
// the license service stays testable against the in-memory store.
type Store interface {
	Save(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
