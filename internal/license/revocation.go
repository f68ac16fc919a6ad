package license

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedLicenseKeyPrefix = "license:revoked:"

// RevocationList records users whose license was administratively expired, so
// sessions issued before the flip can be rejected without waiting for token
// expiry.
type RevocationList interface {
	Revoke(ctx context.Context, uid string, ttl time.Duration) error
	IsRevoked(ctx context.Context, uid string) (bool, error)
}

// RedisRevocationList is the production revocation list. Multiple license
// service instances share revocation state through Redis; the TTL bounds the
// entry lifetime to the longest session a stale token could carry.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, uid string, ttl time.Duration) error {
	if uid == "" {
		return nil
	}
	// Key existence is the marker, the value carries no meaning.
	return r.client.Set(ctx, revokedLicenseKeyPrefix+uid, "1", ttl).Err()
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	_, err := r.client.Get(ctx, revokedLicenseKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NoopRevocationList is used when Redis is not configured, such as single
// instance dev deployments. Nothing is ever revoked early; expiry falls back
// to the claims on the next login.
type NoopRevocationList struct{}

func (NoopRevocationList) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopRevocationList) IsRevoked(context.Context, string) (bool, error) { return false, nil }
