package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type IdentitySuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	tokens  *TokenService
	service *Service
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.tokens = NewTokenService("test-signing-key", "sonoreport")
	svc, err := NewService(s.store, s.tokens)
	s.Require().NoError(err)
	s.service = svc
}

func (s *IdentitySuite) TestNewService() {
	s.Run("nil store rejected", func() {
		_, err := NewService(nil, s.tokens)
		s.Error(err)
	})
	s.Run("nil token service rejected", func() {
		_, err := NewService(s.store, nil)
		s.Error(err)
	})
}

func (s *IdentitySuite) TestGetOrCreate() {
	user, created, err := s.service.GetOrCreate(s.ctx, "vet@example.com", "hunter22", "Dra. Souza")
	s.Require().NoError(err)
	s.True(created)
	s.NotEmpty(user.ID)
	s.NotEqual("hunter22", string(user.PasswordHash))

	s.Run("second call returns the same account", func() {
		again, created, err := s.service.GetOrCreate(s.ctx, "vet@example.com", "different", "Someone Else")
		s.NoError(err)
		s.False(created)
		s.Equal(user.ID, again.ID)
	})

	s.Run("email lookup is case-insensitive", func() {
		again, created, err := s.service.GetOrCreate(s.ctx, "VET@example.com", "x", "y")
		s.NoError(err)
		s.False(created)
		s.Equal(user.ID, again.ID)
	})
}

func (s *IdentitySuite) TestAuthenticate() {
	user, _, err := s.service.GetOrCreate(s.ctx, "vet@example.com", "hunter22", "Dra. Souza")
	s.Require().NoError(err)

	s.Run("correct password", func() {
		got, err := s.service.Authenticate(s.ctx, "vet@example.com", "hunter22")
		s.NoError(err)
		s.Equal(user.ID, got.ID)
	})

	s.Run("wrong password", func() {
		_, err := s.service.Authenticate(s.ctx, "vet@example.com", "wrong")
		s.ErrorIs(err, ErrInvalidCredentials)
	})

	s.Run("unknown account maps to the same error", func() {
		_, err := s.service.Authenticate(s.ctx, "ghost@example.com", "hunter22")
		s.ErrorIs(err, ErrInvalidCredentials)
	})
}

func (s *IdentitySuite) TestSetClaimsOverwritesWholesale() {
	user, _, err := s.service.GetOrCreate(s.ctx, "vet@example.com", "hunter22", "Dra. Souza")
	s.Require().NoError(err)

	first := Claims{
		Practice:      "vet",
		Modules:       []string{"core", "ultrasound", "lab_vet"},
		Plan:          "full_vet",
		LicenseActive: true,
	}
	s.Require().NoError(s.service.SetClaims(s.ctx, user.ID, first))

	// A later overwrite with fewer modules must not merge with the old set.
	second := Claims{Practice: "vet", Modules: []string{"core"}, Plan: "basic", LicenseActive: true}
	s.Require().NoError(s.service.SetClaims(s.ctx, user.ID, second))

	got, err := s.service.Lookup(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal([]string{"core"}, got.Claims.Modules)
	s.Equal("basic", got.Claims.Plan)

	s.Run("stored claims do not alias the caller's slice", func() {
		second.Modules[0] = "mutated"
		fresh, err := s.service.Lookup(s.ctx, user.ID)
		s.NoError(err)
		s.Equal([]string{"core"}, fresh.Claims.Modules)
	})
}

func (s *IdentitySuite) TestTokenRoundTrip() {
	user, _, err := s.service.GetOrCreate(s.ctx, "vet@example.com", "hunter22", "Dra. Souza")
	s.Require().NoError(err)
	claims := Claims{
		Practice:      "human",
		Modules:       []string{"core", "ophthalmo_human"},
		Plan:          "full_human",
		LicenseActive: true,
	}
	s.Require().NoError(s.service.SetClaims(s.ctx, user.ID, claims))
	user, err = s.service.Lookup(s.ctx, user.ID)
	s.Require().NoError(err)

	token, err := s.service.IssueToken(user, time.Hour)
	s.Require().NoError(err)

	s.Run("valid token carries the claims", func() {
		parsed, err := s.service.VerifyToken(token)
		s.Require().NoError(err)
		s.Equal(user.ID, parsed.Subject)
		s.Equal("human", parsed.Practice)
		s.Equal([]string{"core", "ophthalmo_human"}, parsed.Modules)
		s.True(parsed.LicenseActive)
	})

	s.Run("wrong key rejected", func() {
		other := NewTokenService("other-key", "sonoreport")
		_, err := other.Verify(token)
		s.Error(err)
	})

	s.Run("garbage rejected", func() {
		_, err := s.service.VerifyToken("not-a-token")
		s.Error(err)
	})

	s.Run("expired token rejected", func() {
		stale, err := s.service.IssueToken(user, -time.Minute)
		s.Require().NoError(err)
		_, err = s.service.VerifyToken(stale)
		s.Error(err)
	})
}
