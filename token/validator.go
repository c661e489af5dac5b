package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired marks a token that failed only its expiry check.
	// Callers treat it as a trigger to attempt a refresh exchange; every
	// other validation failure is a non-recoverable denial.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid marks a signature, issuer, or structural failure.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrClientIDMismatch marks a token minted for a different OAuth client.
	ErrClientIDMismatch = errors.New("token client_id mismatch")
)

// Config holds validator parameters. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	// JWKSURL is the signing-key discovery document, e.g. the issuer's
	// /.well-known/jwks.json.
	JWKSURL string
	// Issuer is the expected iss claim.
	Issuer string
	// ClientID is the backend app client id compared against the token's
	// client_id claim. This is the audience check for access tokens that
	// carry no aud claim.
	ClientID string
	// Leeway is the clock-skew allowance applied to time-based claims.
	// Defaults to 60s.
	Leeway time.Duration
	// RefreshInterval controls background JWKS refresh. Defaults to 1h.
	RefreshInterval time.Duration
}

// Claims is the typed claim set extracted from a validated access token.
type Claims struct {
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies bearer access tokens: signature against the cached
// JWKS, issuer, expiry with leeway, and the client_id audience check.
type Validator struct {
	config Config
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

// NewValidator fetches the JWKS from cfg.JWKSURL and starts background
// refresh. Close must be called to stop the refresh goroutine.
func NewValidator(ctx context.Context, cfg Config) (*Validator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url required")
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   refreshInterval(cfg),
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	return NewValidatorWithJWKS(cfg, jwks)
}

// NewValidatorWithJWKS builds a Validator around an already-constructed key
// set, e.g. one created from raw JSON in tests.
func NewValidatorWithJWKS(cfg Config, jwks *keyfunc.JWKS) (*Validator, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id required")
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 60 * time.Second
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	)

	return &Validator{config: cfg, jwks: jwks, parser: parser}, nil
}

// Validate parses and verifies an access token and returns its typed claims.
// An expired but otherwise valid token returns [ErrTokenExpired]; any other
// failure returns [ErrTokenInvalid] or [ErrClientIDMismatch].
func (v *Validator) Validate(tokenStr string) (*Claims, error) {
	parsed, err := v.parser.ParseWithClaims(tokenStr, &Claims{}, v.jwks.Keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.ClientID != v.config.ClientID {
		return nil, fmt.Errorf("%w: got %q", ErrClientIDMismatch, claims.ClientID)
	}

	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func refreshInterval(cfg Config) time.Duration {
	if cfg.RefreshInterval > 0 {
		return cfg.RefreshInterval
	}
	return time.Hour
}
