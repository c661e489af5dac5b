// Package cognito implements [provider.IdentityProvider] on Amazon Cognito
// user pools through aws-sdk-go-v2.
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/authgate/provider"
)

// API is the subset of the Cognito identity-provider client the adapter
// calls. *cognitoidentityprovider.Client satisfies it.
type API interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, opts ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, opts ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, opts ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, opts ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
}

// Config holds the user-pool app client parameters.
type Config struct {
	ClientID string
	// ClientSecret enables SECRET_HASH computation when the app client has
	// a secret configured. Empty disables it.
	ClientSecret string
	// RefreshTTL sizes the refresh-token expiry reported to callers; Cognito
	// does not return one on exchange. Should match the app client setting.
	RefreshTTL time.Duration
}

// Client adapts a Cognito user pool to [provider.IdentityProvider].
type Client struct {
	api    API
	config Config
	now    func() time.Time
}

// New creates a Cognito-backed provider.
func New(api API, cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("cognito client id required")
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Client{api: api, config: cfg, now: time.Now}, nil
}

// ExchangeRefreshToken runs the REFRESH_TOKEN_AUTH flow.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*provider.Tokens, error) {
	params := map[string]string{"REFRESH_TOKEN": refreshToken}
	// SECRET_HASH for the refresh flow is keyed by client id alone; the
	// username is not known at this point.
	if c.config.ClientSecret != "" {
		params["SECRET_HASH"] = c.secretHash("")
	}

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrExchangeRejected, err)
	}

	return c.tokensFromResult(out.AuthenticationResult, refreshToken)
}

// SignUp starts account creation. Cognito generates and emails the code.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	in := &cip.SignUpInput{
		ClientId: aws.String(c.config.ClientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	}
	if c.config.ClientSecret != "" {
		in.SecretHash = aws.String(c.secretHash(email))
	}

	if _, err := c.api.SignUp(ctx, in); err != nil {
		return fmt.Errorf("cognito sign up: %w", err)
	}
	return nil
}

// VerifySignup confirms the emailed code and returns the opaque Cognito
// session token for the follow-up InitiateAuth call.
func (c *Client) VerifySignup(ctx context.Context, email, code string) (string, error) {
	in := &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.config.ClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	}
	if c.config.ClientSecret != "" {
		in.SecretHash = aws.String(c.secretHash(email))
	}

	out, err := c.api.ConfirmSignUp(ctx, in)
	if err != nil {
		return "", fmt.Errorf("cognito confirm sign up: %w", err)
	}

	return aws.ToString(out.Session), nil
}

// ResendCode re-delivers the confirmation code.
func (c *Client) ResendCode(ctx context.Context, email string) error {
	in := &cip.ResendConfirmationCodeInput{
		ClientId: aws.String(c.config.ClientID),
		Username: aws.String(email),
	}
	if c.config.ClientSecret != "" {
		in.SecretHash = aws.String(c.secretHash(email))
	}

	if _, err := c.api.ResendConfirmationCode(ctx, in); err != nil {
		return fmt.Errorf("cognito resend code: %w", err)
	}
	return nil
}

// InitiateAuth completes sign-in with the session token from VerifySignup.
func (c *Client) InitiateAuth(ctx context.Context, email, sessionToken string) (*provider.Tokens, error) {
	params := map[string]string{"USERNAME": email}
	if c.config.ClientSecret != "" {
		params["SECRET_HASH"] = c.secretHash(email)
	}

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: params,
		Session:        aws.String(sessionToken),
	})
	if err != nil {
		return nil, fmt.Errorf("cognito initiate auth: %w", err)
	}

	return c.tokensFromResult(out.AuthenticationResult, "")
}

// tokensFromResult maps a Cognito authentication result onto the provider
// token shape. Subject and email come from the returned ID token; the parse
// is unverified because the tokens arrived first-hand from the issuer over
// TLS — the gateway's own validator re-verifies the access token on every
// subsequent request.
func (c *Client) tokensFromResult(res *types.AuthenticationResultType, priorRefreshToken string) (*provider.Tokens, error) {
	if res == nil || res.AccessToken == nil {
		return nil, errors.New("cognito returned no authentication result")
	}

	now := c.now()
	t := &provider.Tokens{
		AccessToken:      aws.ToString(res.AccessToken),
		IDToken:          aws.ToString(res.IdToken),
		RefreshToken:     aws.ToString(res.RefreshToken),
		AccessExpiresAt:  now.Add(time.Duration(res.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(c.config.RefreshTTL),
	}

	// Cognito omits the refresh token from REFRESH_TOKEN_AUTH responses
	// unless rotation is enabled; the prior token stays valid.
	if t.RefreshToken == "" {
		t.RefreshToken = priorRefreshToken
	}

	sub, email, err := identityFromIDToken(t.IDToken)
	if err != nil {
		return nil, err
	}
	t.Subject = sub
	t.Email = email

	return t, nil
}

func identityFromIDToken(idToken string) (subject, email string, err error) {
	if idToken == "" {
		return "", "", errors.New("cognito returned no id token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", "", fmt.Errorf("parse id token: %w", err)
	}

	subject, _ = claims["sub"].(string)
	email, _ = claims["email"].(string)
	if subject == "" {
		return "", "", errors.New("id token missing sub claim")
	}

	return subject, email, nil
}

// secretHash computes base64(HMAC-SHA256(username + clientID, clientSecret)).
func (c *Client) secretHash(username string) string {
	mac := hmac.New(sha256.New, []byte(c.config.ClientSecret))
	mac.Write([]byte(username + c.config.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
