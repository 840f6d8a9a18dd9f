package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for revoked sessions.
const revokedKeyPrefix = "session:revoked:"

// RedisList shares revocation state across gateway instances. Key existence
// is the marker; SETEX gives atomic set-with-expiry.
type RedisList struct {
	client *redis.Client
}

// NewRedisList wraps an existing Redis client. The client lifecycle is
// managed by the caller.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// NewRedisClient connects to Redis from a URL and verifies the connection.
// Returns nil without error when the URL is empty (Redis not configured).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Revoke adds a session ID to the list with TTL.
func (l *RedisList) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err()
}

// IsRevoked checks the list; a missing key means not revoked or expired.
func (l *RedisList) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
