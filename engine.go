package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authgate/internal/limiters"
	"github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/provider"
	"github.com/MrEthical07/authgate/refresh"
	"github.com/MrEthical07/authgate/session"
)

// Engine is the gateway's public surface. Instances are built once through
// [Builder.Build] and are safe for concurrent use.
type Engine struct {
	config   Config
	sessions *session.Store
	refresh  refresh.Store
	resolver *Resolver
	limiter  *limiters.EmailLimiter
	provider provider.IdentityProvider
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// SignInResult carries the cookies minted by a completed sign-in.
type SignInResult struct {
	AccessSessionID  string
	RefreshSessionID string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SetCookies       []string
	Subject          string
	Email            string
}

// SignUp starts account creation for email, enforcing the initiation budget
// (per normalized email, plus per IP when one is attached to ctx).
func (e *Engine) SignUp(ctx context.Context, email, password string) error {
	if err := e.enforceLimit(ctx, "signup", e.limiter.CheckSignup, email); err != nil {
		return err
	}

	if err := e.provider.SignUp(ctx, email, password); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// VerifySignup confirms the emailed code, enforcing the verification budget,
// and returns the opaque provider session token for [Engine.CompleteSignIn].
func (e *Engine) VerifySignup(ctx context.Context, email, code string) (string, error) {
	if err := e.enforceLimit(ctx, "verify", e.limiter.CheckVerify, email); err != nil {
		return "", err
	}

	sessionToken, err := e.provider.VerifySignup(ctx, email, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return sessionToken, nil
}

// ResendCode re-delivers the verification code, enforcing the resend budget.
func (e *Engine) ResendCode(ctx context.Context, email string) error {
	if err := e.enforceLimit(ctx, "resend", e.limiter.CheckResend, email); err != nil {
		return err
	}

	if err := e.provider.ResendCode(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// CompleteSignIn exchanges the opaque provider session token for tokens,
// persists the refresh record, caches the stripped session data, and mints
// both session cookies.
func (e *Engine) CompleteSignIn(ctx context.Context, email, sessionToken string) (*SignInResult, error) {
	tokens, err := e.provider.InitiateAuth(ctx, email, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	now := e.now()
	atSID := uuid.NewString()
	rtSID := uuid.NewString()

	refreshExpiry := tokens.RefreshExpiresAt
	if refreshExpiry.IsZero() {
		refreshExpiry = now.Add(e.config.Session.RefreshTTL)
	}

	// The durable write comes first: a session cache entry without a backing
	// refresh record would strand the browser after one access-token expiry.
	rec := &refresh.Record{
		ID:           rtSID,
		Subject:      tokens.Subject,
		Email:        tokens.Email,
		RefreshToken: tokens.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    refreshExpiry,
	}
	if err := e.refresh.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}

	data := &session.Data{
		IssuedAt:         now,
		AccessToken:      tokens.AccessToken,
		IDToken:          tokens.IDToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: refreshExpiry,
		Subject:          tokens.Subject,
		Email:            tokens.Email,
	}
	if err := e.sessions.Save(ctx, atSID, data, tokens.AccessExpiresAt.Sub(now)); err != nil {
		// Tolerated like a lost cache-write after refresh: the refresh
		// record exists, so the first check will repeat the exchange.
		e.logger.Error("session cache write failed after sign-in",
			slog.String("error", err.Error()))
	}

	return &SignInResult{
		AccessSessionID:  atSID,
		RefreshSessionID: rtSID,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshExpiresAt: refreshExpiry,
		SetCookies: []string{
			setCookie(e.config.Cookies.AccessName, atSID, tokens.AccessExpiresAt),
			setCookie(e.config.Cookies.RefreshName, rtSID, refreshExpiry),
		},
		Subject: tokens.Subject,
		Email:   tokens.Email,
	}, nil
}

// SignOut deletes the cached access session and returns clear directives for
// both cookies. The refresh record is left in place; an orphaned record is
// inert once its cookie is gone.
func (e *Engine) SignOut(ctx context.Context, cookieHeader string) ([]string, error) {
	cookies := e.config.Cookies.parseCookies(cookieHeader)

	if cookies.AccessSessionID != "" {
		if err := e.sessions.Delete(ctx, cookies.AccessSessionID); err != nil {
			return nil, err
		}
	}

	return []string{
		clearCookie(e.config.Cookies.AccessName),
		clearCookie(e.config.Cookies.RefreshName),
	}, nil
}

type limitCheck func(ctx context.Context, email, ip string) (rate.Decision, error)

func (e *Engine) enforceLimit(ctx context.Context, route string, check limitCheck, email string) error {
	d, err := check(ctx, email, clientIPFromContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if !d.Allowed {
		e.metrics.RecordRateLimitDenied(route)
		e.logger.Warn("rate limit exceeded",
			slog.String("route", route),
			slog.Int("retry_after_seconds", d.RetryAfterSeconds()))
		return &RateLimitError{RetryAfter: d.RetryAfter}
	}
	return nil
}
