package authgate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/provider"
	"github.com/MrEthical07/authgate/refresh"
	"github.com/MrEthical07/authgate/session"
	"github.com/MrEthical07/authgate/token"
)

// TokenValidator verifies a bearer access token and returns its claims.
// Implemented by [token.Validator]; kept as an interface so resolver tests
// run against a double.
type TokenValidator interface {
	Validate(accessToken string) (*token.Claims, error)
}

// Cookies carries the two session cookie values presented by a request.
// Either may be empty.
type Cookies struct {
	AccessSessionID  string // AT_SID
	RefreshSessionID string // RT_SID
}

// Resolution is the typed outcome of one resolve attempt. Exactly one of
// three shapes reaches callers: a resolved session (Session != nil), a plain
// denial (Session == nil, ClearRefreshCookie false), or a denial that must
// also expire the refresh cookie (ClearRefreshCookie true). Making the
// branches explicit keeps callers from forgetting one.
type Resolution struct {
	// Session is the resolved session data, refresh token stripped, or nil
	// when resolution failed.
	Session *session.Data

	// NewSessionID and NewExpiry are set when a refresh occurred and the
	// caller must rotate the access-session cookie. NewSessionID repeats the
	// presented id when one existed, or carries a freshly minted one.
	NewSessionID string
	NewExpiry    time.Time

	// ClearRefreshCookie instructs the caller to answer with an
	// already-expired refresh cookie: the presented refresh-session id was
	// not found in the store, so retrying it is pointless.
	ClearRefreshCookie bool
}

// Resolver turns inbound session cookies into a live session, transparently
// exchanging the refresh token and re-caching when the access token has
// expired.
type Resolver struct {
	sessions  *session.Store
	refresh   refresh.Store
	validator TokenValidator
	provider  provider.IdentityProvider
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewResolver wires a resolver. logger must not be nil; metrics may be.
func NewResolver(
	sessions *session.Store,
	refreshStore refresh.Store,
	validator TokenValidator,
	idp provider.IdentityProvider,
	logger *slog.Logger,
	collector *metrics.Collector,
) *Resolver {
	return &Resolver{
		sessions:  sessions,
		refresh:   refreshStore,
		validator: validator,
		provider:  idp,
		logger:    logger,
		metrics:   collector,
		now:       time.Now,
	}
}

// Resolve runs the resolution state machine. The returned error is reserved
// for infrastructure failures (cache unreachable, context canceled); every
// authentication outcome, including denial, arrives as a [Resolution].
func (r *Resolver) Resolve(ctx context.Context, c Cookies) (*Resolution, error) {
	start := r.now()
	defer func() {
		r.metrics.ObserveResolveLatency(r.now().Sub(start))
	}()

	if c.AccessSessionID != "" {
		data, err := r.sessions.Get(ctx, c.AccessSessionID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			// Cache miss: the entry expired with its TTL. Refresh path.
		case err != nil:
			return nil, err
		default:
			if res, ok := r.resolveCached(data); ok {
				return res, nil
			}
		}
	}

	return r.refreshSession(ctx, c)
}

// resolveCached validates a cache hit. ok is false when the caller should
// continue down the refresh path.
func (r *Resolver) resolveCached(data *session.Data) (*Resolution, bool) {
	_, err := r.validator.Validate(data.AccessToken)
	if err == nil {
		return &Resolution{Session: data}, true
	}

	if !errors.Is(err, token.ErrTokenExpired) {
		// Deliberately lenient: any validation failure falls through to the
		// refresh path, not to denial, so a key-rotation race or clock skew
		// cannot strand a legitimate session holder. A tampered token still
		// dies at the provider during the exchange.
		r.logger.Warn("access token validation failed, attempting refresh",
			slog.String("error", err.Error()))
	}

	return nil, false
}

func (r *Resolver) refreshSession(ctx context.Context, c Cookies) (*Resolution, error) {
	if c.RefreshSessionID == "" {
		return &Resolution{}, nil
	}

	rec, err := r.refresh.Get(ctx, c.RefreshSessionID)
	if errors.Is(err, refresh.ErrNotFound) {
		r.logger.Info("unknown refresh session presented, clearing cookie",
			slog.String("refresh_session_id", c.RefreshSessionID))
		return &Resolution{ClearRefreshCookie: true}, nil
	}
	if err != nil {
		return nil, err
	}

	tokens, err := r.provider.ExchangeRefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		// Terminal for this request: no retry loop. The client must
		// re-authenticate.
		r.metrics.RecordRefresh("rejected")
		r.logger.Warn("refresh exchange rejected",
			slog.String("subject", rec.Subject),
			slog.String("error", err.Error()))
		return &Resolution{}, nil
	}
	r.metrics.RecordRefresh("ok")

	now := r.now()
	data := &session.Data{
		IssuedAt:         now,
		AccessToken:      tokens.AccessToken,
		IDToken:          tokens.IDToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
		Subject:          tokens.Subject,
		Email:            tokens.Email,
	}
	if data.Subject == "" {
		data.Subject = rec.Subject
	}
	if data.Email == "" {
		data.Email = rec.Email
	}

	sid := c.AccessSessionID
	if sid == "" {
		sid = uuid.NewString()
	}

	ttl := tokens.AccessExpiresAt.Sub(now)
	if err := r.sessions.Save(ctx, sid, data, ttl); err != nil {
		// Lost cache-write, not a correctness violation: the provider-side
		// refresh succeeded, so this request proceeds and the next
		// resolution simply repeats the exchange.
		r.logger.Error("session cache write failed after refresh",
			slog.String("error", err.Error()))
	}

	// The store stripped the refresh token from the cached payload; strip it
	// from the returned copy too so refresh material never leaves this path.
	data.RefreshToken = ""

	return &Resolution{
		Session:      data,
		NewSessionID: sid,
		NewExpiry:    tokens.AccessExpiresAt,
	}, nil
}
