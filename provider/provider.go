// Package provider defines the external identity-provider interface the
// gateway consumes. The provider owns credentials, password hashing, and
// verification codes; the gateway only passes opaque tokens and outcomes
// through. Keeping this an injected interface means the session resolver has
// no compile-time dependency on provider implementation details and tests
// run against a double.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrExchangeRejected is returned when the provider refuses a refresh
// exchange. Callers treat it as a terminal denial; the client must
// re-authenticate.
var ErrExchangeRejected = errors.New("provider rejected refresh exchange")

// Tokens is the session shape returned by a successful exchange or sign-in.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	Subject string
	Email   string
}

// IdentityProvider is the consumed collaborator interface.
type IdentityProvider interface {
	// ExchangeRefreshToken trades a stored refresh token for fresh
	// access/identity tokens. Rejection returns [ErrExchangeRejected].
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Tokens, error)

	// SignUp starts account creation for email. The provider generates and
	// delivers the verification code.
	SignUp(ctx context.Context, email, password string) error

	// VerifySignup confirms the emailed code and returns an opaque provider
	// session token consumed by InitiateAuth.
	VerifySignup(ctx context.Context, email, code string) (string, error)

	// ResendCode re-delivers the verification code for a pending sign-up.
	ResendCode(ctx context.Context, email string) error

	// InitiateAuth completes sign-in using the opaque session token from
	// VerifySignup and returns the same session shape as a refresh.
	InitiateAuth(ctx context.Context, email, sessionToken string) (*Tokens, error)
}
