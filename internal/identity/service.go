// Package identity manages licensed user accounts: creation, credential
// checks, license claims, and the session tokens that carry those claims to
// the desktop client.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed email/password check.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service owns account lifecycle and claims.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// NewService constructs the identity service.
func NewService(store Store, tokens *TokenService) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	return &Service{store: store, tokens: tokens, now: time.Now}, nil
}

// GetOrCreate returns the user for email, creating the account with the
// given temporary password when it does not exist yet.
func (s *Service) GetOrCreate(ctx context.Context, email, password, displayName string) (User, bool, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, false, fmt.Errorf("hash password: %w", err)
	}
	user = User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Save(ctx, user); err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// SetClaims overwrites the user's license claims wholesale. Claims are never
// merged field-by-field: the license service is the single writer.
func (s *Service) SetClaims(ctx context.Context, userID string, claims Claims) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	claims.Modules = append([]string(nil), claims.Modules...)
	user.Claims = claims
	return s.store.Save(ctx, user)
}

// Authenticate checks credentials and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken creates a session token carrying the user's current claims.
func (s *Service) IssueToken(user User, expiresIn time.Duration) (string, error) {
	return s.tokens.Generate(user, expiresIn)
}

// VerifyToken validates a session token and returns its claims.
func (s *Service) VerifyToken(token string) (*SessionClaims, error) {
	return s.tokens.Verify(token)
}

// Lookup returns the user by id.
func (s *Service) Lookup(ctx context.Context, userID string) (User, error) {
	return s.store.FindByID(ctx, userID)
}
