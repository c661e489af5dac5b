package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestKeyString(t *testing.T) {
	k := Key{Algorithm: Fixed, Route: "signup", Identifier: "email:user@example.com"}
	want := "rl:fixed:signup:email:user@example.com"
	if got := k.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestFixedWindowAllowsUpToMax(t *testing.T) {
	l := newTestLimiter(t)
	base := time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	key := Key{Algorithm: Fixed, Route: "signup", Identifier: "email:a@b.c"}
	for i := 0; i < 5; i++ {
		d, err := l.Allow(context.Background(), key, time.Hour, 5)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d denied, want allowed", i+1)
		}
	}

	d, err := l.Allow(context.Background(), key, time.Hour, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("6th attempt allowed, want denied")
	}
	// 10:30 inside the 10:00-11:00 bucket: 30 minutes to the boundary.
	if d.RetryAfter != 30*time.Minute {
		t.Fatalf("retry-after = %v, want 30m", d.RetryAfter)
	}
}

func TestFixedWindowResetsAtBoundary(t *testing.T) {
	l := newTestLimiter(t)
	now := time.Date(2026, 1, 2, 10, 59, 59, 0, time.UTC)
	l.now = func() time.Time { return now }

	key := Key{Algorithm: Fixed, Route: "resend", Identifier: "email:a@b.c"}

	d, err := l.Allow(context.Background(), key, time.Hour, 1)
	if err != nil || !d.Allowed {
		t.Fatalf("first attempt: allowed=%v err=%v", d.Allowed, err)
	}

	d, err = l.Allow(context.Background(), key, time.Hour, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("second attempt in same bucket allowed")
	}
	if d.RetryAfter != time.Second {
		t.Fatalf("retry-after = %v, want 1s", d.RetryAfter)
	}

	// The next bucket starts clean even one second later.
	now = time.Date(2026, 1, 2, 11, 0, 0, 0, time.UTC)
	d, err = l.Allow(context.Background(), key, time.Hour, 1)
	if err != nil || !d.Allowed {
		t.Fatalf("attempt after boundary: allowed=%v err=%v", d.Allowed, err)
	}
}

func TestFixedWindowIsolatesKeys(t *testing.T) {
	l := newTestLimiter(t)
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	a := Key{Algorithm: Fixed, Route: "signup", Identifier: "email:a@b.c"}
	b := Key{Algorithm: Fixed, Route: "signup", Identifier: "email:x@y.z"}

	if d, err := l.Allow(context.Background(), a, time.Hour, 1); err != nil || !d.Allowed {
		t.Fatalf("a: allowed=%v err=%v", d.Allowed, err)
	}
	if d, err := l.Allow(context.Background(), a, time.Hour, 1); err != nil || d.Allowed {
		t.Fatalf("a exhausted: allowed=%v err=%v", d.Allowed, err)
	}
	if d, err := l.Allow(context.Background(), b, time.Hour, 1); err != nil || !d.Allowed {
		t.Fatalf("b should not share a's budget: allowed=%v err=%v", d.Allowed, err)
	}
}

func TestSlidingWindowDeniesAndReportsRetry(t *testing.T) {
	l := newTestLimiter(t)
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	key := Key{Algorithm: Sliding, Route: "verify", Identifier: "email:a@b.c"}
	for i := 0; i < 5; i++ {
		d, err := l.Allow(context.Background(), key, time.Hour, 5)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d denied, want allowed", i+1)
		}
	}

	// Half an hour later the oldest entry still has half the window to live.
	now = base.Add(30 * time.Minute)
	d, err := l.Allow(context.Background(), key, time.Hour, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("6th attempt allowed, want denied")
	}
	if d.RetryAfter != 30*time.Minute {
		t.Fatalf("retry-after = %v, want 30m", d.RetryAfter)
	}
}

func TestSlidingWindowForgetsOldEntries(t *testing.T) {
	l := newTestLimiter(t)
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	key := Key{Algorithm: Sliding, Route: "verify", Identifier: "email:a@b.c"}
	for i := 0; i < 3; i++ {
		if d, err := l.Allow(context.Background(), key, time.Hour, 3); err != nil || !d.Allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i+1, d.Allowed, err)
		}
	}
	if d, err := l.Allow(context.Background(), key, time.Hour, 3); err != nil || d.Allowed {
		t.Fatalf("exhausted: allowed=%v err=%v", d.Allowed, err)
	}

	// Once the original burst has aged out of the window the budget returns.
	now = base.Add(time.Hour + time.Millisecond)
	if d, err := l.Allow(context.Background(), key, time.Hour, 3); err != nil || !d.Allowed {
		t.Fatalf("after window: allowed=%v err=%v", d.Allowed, err)
	}
}

func TestSlidingWindowNoBoundaryDoubleBurst(t *testing.T) {
	l := newTestLimiter(t)
	base := time.Date(2026, 1, 2, 10, 59, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	key := Key{Algorithm: Sliding, Route: "verify", Identifier: "email:a@b.c"}
	for i := 0; i < 5; i++ {
		if d, err := l.Allow(context.Background(), key, time.Hour, 5); err != nil || !d.Allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i+1, d.Allowed, err)
		}
	}

	// A fixed window would grant a fresh budget at 11:00; sliding must not.
	now = base.Add(2 * time.Minute)
	d, err := l.Allow(context.Background(), key, time.Hour, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("attempt just past the hour boundary allowed, want denied")
	}
}

func TestAllowRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := New(client)
	mr.Close()

	key := Key{Algorithm: Fixed, Route: "signup", Identifier: "email:a@b.c"}
	_, err := l.Allow(context.Background(), key, time.Hour, 5)
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("got %v, want ErrRedisUnavailable", err)
	}
}

func TestDecisionRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		retry time.Duration
		want  int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Hour, 3600},
	}
	for _, c := range cases {
		d := Decision{RetryAfter: c.retry}
		if got := d.RetryAfterSeconds(); got != c.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", c.retry, got, c.want)
		}
	}
}
