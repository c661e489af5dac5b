package limiters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate/internal/rate"
)

// Limit is one budget: at most Max requests per Window.
type Limit struct {
	Window time.Duration
	Max    int
}

// Config holds the per-endpoint budgets.
type Config struct {
	Signup Limit
	Resend Limit
	Verify Limit

	// IP guards all three endpoints per client IP when enabled.
	IP               Limit
	EnableIPThrottle bool
}

// EmailLimiter enforces the signup/verification/resend abuse budgets.
type EmailLimiter struct {
	limiter *rate.Limiter
	config  Config
}

// NewEmail creates an [EmailLimiter] backed by the given Redis client.
func NewEmail(redisClient redis.UniversalClient, cfg Config) *EmailLimiter {
	return &EmailLimiter{
		limiter: rate.New(redisClient),
		config:  cfg,
	}
}

// CheckSignup enforces the sign-up initiation budgets. Fixed window: the
// initiation budget is generous and boundary bursts are acceptable.
func (l *EmailLimiter) CheckSignup(ctx context.Context, email, ip string) (rate.Decision, error) {
	return l.check(ctx, rate.Fixed, "signup", l.config.Signup, email, ip)
}

// CheckResend enforces the code-resend budgets.
func (l *EmailLimiter) CheckResend(ctx context.Context, email, ip string) (rate.Decision, error) {
	return l.check(ctx, rate.Fixed, "resend", l.config.Resend, email, ip)
}

// CheckVerify enforces the verification budgets. Sliding window: the budget
// is tight and code guessing must not get a double allowance at a window
// boundary.
func (l *EmailLimiter) CheckVerify(ctx context.Context, email, ip string) (rate.Decision, error) {
	return l.check(ctx, rate.Sliding, "verify", l.config.Verify, email, ip)
}

func (l *EmailLimiter) check(ctx context.Context, algo rate.Algorithm, route string, limit Limit, email, ip string) (rate.Decision, error) {
	emailKey := rate.Key{
		Algorithm:  algo,
		Route:      route,
		Identifier: "email:" + rate.NormalizeEmail(email),
	}
	d, err := l.limiter.Allow(ctx, emailKey, limit.Window, limit.Max)
	if err != nil || !d.Allowed {
		return d, err
	}

	if !l.config.EnableIPThrottle || ip == "" {
		return d, nil
	}

	ipKey := rate.Key{
		Algorithm:  rate.Sliding,
		Route:      route,
		Identifier: "ip:" + ip,
	}
	return l.limiter.Allow(ctx, ipKey, l.config.IP.Window, l.config.IP.Max)
}
