package authgate

import (
	"errors"
	"time"
)

// Config holds gateway tuning parameters. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	Cookies  CookieConfig
	Session  SessionConfig
	Limits   LimitConfig
	Identity IdentityConfig
}

// CookieConfig names the two session cookies the gateway reads and rotates.
type CookieConfig struct {
	AccessName  string // access-session id cookie, default "AT_SID"
	RefreshName string // refresh-session id cookie, default "RT_SID"
}

// SessionConfig controls the access-session cache and refresh-record lifetime.
type SessionConfig struct {
	// RedisPrefix namespaces access-session keys; the cache key for an
	// access-session id SID is "<RedisPrefix>:<SID>".
	RedisPrefix string
	// RefreshTTL bounds the durable refresh record. The provider remains the
	// authority for refresh-token validity; this only sizes the record's
	// expires-at column.
	RefreshTTL time.Duration
}

// Limit is one rate-limit budget: at most Max requests per Window.
type Limit struct {
	Window time.Duration
	Max    int
}

// LimitConfig carries the per-endpoint abuse budgets. Email-scoped limits are
// mandatory on signup, resend, and verification; the IP limit additionally
// guards all three when a client IP is attached to the context.
type LimitConfig struct {
	Signup Limit // sign-up initiation, per normalized email
	Resend Limit // code resend, per normalized email
	Verify Limit // verification attempts, per normalized email
	IP     Limit // shared per-IP guard on the write endpoints

	EnableIPThrottle bool
}

// IdentityConfig controls what the check endpoint injects for upstreams.
type IdentityConfig struct {
	// InjectHeaders adds X-Auth-Subject and X-Auth-Email to allowed checks.
	InjectHeaders bool
	// InjectAuthorization adds "Authorization: Bearer <access token>" to
	// allowed checks for upstreams that consume the raw token.
	InjectAuthorization bool
}

func defaultConfig() Config {
	return Config{
		Cookies: CookieConfig{
			AccessName:  "AT_SID",
			RefreshName: "RT_SID",
		},
		Session: SessionConfig{
			RedisPrefix: "sess",
			RefreshTTL:  30 * 24 * time.Hour,
		},
		Limits: LimitConfig{
			Signup:           Limit{Window: time.Hour, Max: 15},
			Resend:           Limit{Window: time.Hour, Max: 5},
			Verify:           Limit{Window: time.Hour, Max: 5},
			IP:               Limit{Window: time.Hour, Max: 100},
			EnableIPThrottle: true,
		},
		Identity: IdentityConfig{
			InjectHeaders: true,
		},
	}
}

// Validate checks the configuration for values the gateway cannot run with.
func (c Config) Validate() error {
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return errors.New("cookie names required")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return errors.New("access and refresh cookie names must differ")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("refresh TTL must be positive")
	}
	for _, l := range []Limit{c.Limits.Signup, c.Limits.Resend, c.Limits.Verify} {
		if l.Window < time.Second || l.Max <= 0 {
			return errors.New("rate limit budgets require a window of at least 1s and a positive max")
		}
	}
	if c.Limits.EnableIPThrottle && (c.Limits.IP.Window < time.Second || c.Limits.IP.Max <= 0) {
		return errors.New("IP throttle enabled with an invalid budget")
	}
	return nil
}
