package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps transport-level cache failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const minTTL = time.Second

// Store is a Redis-backed access-session cache.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace, conventionally "sess".
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save persists session data under the given access-session id with the
// given TTL. The refresh token field is stripped before writing; TTLs below
// one second are floored at one second so a near-expired token is never
// cached with a zero or negative TTL.
func (s *Store) Save(ctx context.Context, sessionID string, data *Data, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}

	cacheable := *data
	cacheable.RefreshToken = ""

	encoded, err := json.Marshal(&cacheable)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads the session data for the given access-session id.
// A missing or expired entry returns [ErrNotFound].
func (s *Store) Get(ctx context.Context, sessionID string) (*Data, error) {
	raw, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &data, nil
}

// Delete removes the session entry. Deleting a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
