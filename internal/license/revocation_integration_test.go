//go:build integration

package license_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sonoreport/internal/license"
	"sonoreport/pkg/testutil/containers"
)

type RedisRevocationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *license.RedisRevocationList
}

func TestRedisRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRevocationSuite))
}

func (s *RedisRevocationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.list = license.NewRedisRevocationList(s.redis.Client)
}

func (s *RedisRevocationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRevocationSuite) TestRevokeAndCheck() {
	ctx := context.Background()

	revoked, err := s.list.IsRevoked(ctx, "uid-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, "uid-1", time.Minute))

	revoked, err = s.list.IsRevoked(ctx, "uid-1")
	s.Require().NoError(err)
	s.True(revoked)

	s.Run("other uids are unaffected", func() {
		revoked, err := s.list.IsRevoked(ctx, "uid-2")
		s.NoError(err)
		s.False(revoked)
	})
}

func (s *RedisRevocationSuite) TestEntryExpiresWithTTL() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "uid-ttl", 100*time.Millisecond))

	revoked, err := s.list.IsRevoked(ctx, "uid-ttl")
	s.Require().NoError(err)
	s.True(revoked)

	s.Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, "uid-ttl")
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisRevocationSuite) TestEmptyUIDIsIgnored() {
	ctx := context.Background()
	s.NoError(s.list.Revoke(ctx, "", time.Minute))

	revoked, err := s.list.IsRevoked(ctx, "")
	s.NoError(err)
	s.False(revoked)
}
