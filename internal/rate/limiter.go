package rate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Algorithm selects the counting strategy for a key.
type Algorithm string

const (
	// Fixed counts against window-aligned buckets. Cheap: one integer per
	// window per key.
	Fixed Algorithm = "fixed"
	// Sliding counts a trimmed sorted set of timestamps. Precise: no
	// boundary burst.
	Sliding Algorithm = "sliding"
)

// Key is a composite rate-limit key. The same logical actor and route always
// map to the same Redis key; identifiers must be normalized by the caller
// (see [NormalizeEmail]) so that equal actors collide and distinct ones never
// do.
type Key struct {
	Algorithm  Algorithm
	Route      string
	Identifier string
}

func (k Key) String() string {
	return "rl:" + string(k.Algorithm) + ":" + k.Route + ":" + k.Identifier
}

// NormalizeEmail lowercases and trims an email identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// RetryAfter is zero when Allowed; otherwise the time until the key has
	// budget again.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// fixedWindowScript increments the bucket counter and sets its expiry on the
// first hit. The bucket boundary is baked into the key, so the returned count
// alone decides the outcome.
var fixedWindowLua = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// slidingWindowScript trims entries older than the window, then either
// records the new timestamp or reports the wait until the oldest surviving
// entry leaves the window. Times are milliseconds.
var slidingWindowLua = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)

local count = redis.call("ZCARD", KEYS[1])
if count < max then
  redis.call("ZADD", KEYS[1], now, ARGV[4])
  redis.call("PEXPIRE", KEYS[1], window)
  return {1, 0}
end

local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local retry = window
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, retry}
`)

// Limiter evaluates rate-limit keys against Redis.
type Limiter struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{
		redis: redisClient,
		now:   time.Now,
	}
}

// Allow records one attempt against key and reports whether it fits within
// max requests per window. The check-and-increment is a single atomic script
// evaluation.
func (l *Limiter) Allow(ctx context.Context, key Key, window time.Duration, max int) (Decision, error) {
	switch key.Algorithm {
	case Sliding:
		return l.allowSliding(ctx, key, window, max)
	default:
		return l.allowFixed(ctx, key, window, max)
	}
}

func (l *Limiter) allowFixed(ctx context.Context, key Key, window time.Duration, max int) (Decision, error) {
	now := l.now()
	windowSecs := int64(window / time.Second)
	windowStart := now.Unix() - now.Unix()%windowSecs
	bucketKey := key.String() + ":" + strconv.FormatInt(windowStart, 10)

	count, err := fixedWindowLua.Run(ctx, l.redis, []string{bucketKey}, windowSecs).Int64()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count <= int64(max) {
		return Decision{Allowed: true}, nil
	}

	boundary := time.Unix(windowStart+windowSecs, 0)
	return Decision{RetryAfter: boundary.Sub(now)}, nil
}

func (l *Limiter) allowSliding(ctx context.Context, key Key, window time.Duration, max int) (Decision, error) {
	now := l.now()
	// Member uniqueness: two callers in the same millisecond must not
	// collapse into one sorted-set entry.
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()

	res, err := slidingWindowLua.Run(ctx, l.redis,
		[]string{key.String()},
		now.UnixMilli(),
		window.Milliseconds(),
		max,
		member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected script result", ErrRedisUnavailable)
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}

	return Decision{RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}
