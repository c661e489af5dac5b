package cognito

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authgate/provider"
)

type fakeAPI struct {
	initiateIn  *cip.InitiateAuthInput
	initiateOut *cip.InitiateAuthOutput
	initiateErr error

	signUpIn *cip.SignUpInput

	confirmIn  *cip.ConfirmSignUpInput
	confirmOut *cip.ConfirmSignUpOutput

	resendIn *cip.ResendConfirmationCodeInput
}

func (f *fakeAPI) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.initiateIn = in
	return f.initiateOut, f.initiateErr
}

func (f *fakeAPI) SignUp(_ context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.signUpIn = in
	return &cip.SignUpOutput{}, nil
}

func (f *fakeAPI) ConfirmSignUp(_ context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.confirmIn = in
	if f.confirmOut != nil {
		return f.confirmOut, nil
	}
	return &cip.ConfirmSignUpOutput{}, nil
}

func (f *fakeAPI) ResendConfirmationCode(_ context.Context, in *cip.ResendConfirmationCodeInput, _ ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error) {
	f.resendIn = in
	return &cip.ResendConfirmationCodeOutput{}, nil
}

// unsignedIDToken builds an alg=none JWT carrying sub and email, matching the
// unverified parse the adapter performs on first-hand provider responses.
func unsignedIDToken(t *testing.T, sub, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   sub,
		"email": email,
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func authResult(t *testing.T, refreshToken string) *types.AuthenticationResultType {
	t.Helper()
	res := &types.AuthenticationResultType{
		AccessToken: aws.String("access-token"),
		IdToken:     aws.String(unsignedIDToken(t, "user-123", "user@example.com")),
		ExpiresIn:   3600,
	}
	if refreshToken != "" {
		res.RefreshToken = aws.String(refreshToken)
	}
	return res
}

func newTestClient(t *testing.T, api *fakeAPI, secret string) *Client {
	t.Helper()
	c, err := New(api, Config{
		ClientID:     "client-1",
		ClientSecret: secret,
		RefreshTTL:   30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return c
}

func TestExchangeRefreshToken(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: authResult(t, "rotated-refresh"),
	}}
	c := newTestClient(t, api, "")

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	tokens, err := c.ExchangeRefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)

	assert.Equal(t, types.AuthFlowTypeRefreshTokenAuth, api.initiateIn.AuthFlow)
	assert.Equal(t, "old-refresh", api.initiateIn.AuthParameters["REFRESH_TOKEN"])
	assert.Equal(t, "access-token", tokens.AccessToken)
	assert.Equal(t, "rotated-refresh", tokens.RefreshToken)
	assert.Equal(t, "user-123", tokens.Subject)
	assert.Equal(t, "user@example.com", tokens.Email)
	assert.True(t, tokens.AccessExpiresAt.Equal(base.Add(time.Hour)))
	assert.True(t, tokens.RefreshExpiresAt.Equal(base.Add(30*24*time.Hour)))
}

func TestExchangeKeepsPriorRefreshTokenWithoutRotation(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: authResult(t, ""),
	}}
	c := newTestClient(t, api, "")

	tokens, err := c.ExchangeRefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", tokens.RefreshToken)
}

func TestExchangeRejected(t *testing.T) {
	api := &fakeAPI{initiateErr: errors.New("NotAuthorizedException")}
	c := newTestClient(t, api, "")

	_, err := c.ExchangeRefreshToken(context.Background(), "revoked")
	assert.ErrorIs(t, err, provider.ErrExchangeRejected)
}

func TestSignUpSendsSecretHash(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, "shhh")

	require.NoError(t, c.SignUp(context.Background(), "user@example.com", "pw"))

	require.NotNil(t, api.signUpIn)
	assert.Equal(t, "user@example.com", aws.ToString(api.signUpIn.Username))
	assert.Equal(t, c.secretHash("user@example.com"), aws.ToString(api.signUpIn.SecretHash))
	require.Len(t, api.signUpIn.UserAttributes, 1)
	assert.Equal(t, "email", aws.ToString(api.signUpIn.UserAttributes[0].Name))
}

func TestSignUpOmitsSecretHashWithoutSecret(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, "")

	require.NoError(t, c.SignUp(context.Background(), "user@example.com", "pw"))
	assert.Nil(t, api.signUpIn.SecretHash)
}

func TestVerifySignupReturnsSession(t *testing.T) {
	api := &fakeAPI{confirmOut: &cip.ConfirmSignUpOutput{Session: aws.String("opaque-session")}}
	c := newTestClient(t, api, "")

	got, err := c.VerifySignup(context.Background(), "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "opaque-session", got)
	assert.Equal(t, "123456", aws.ToString(api.confirmIn.ConfirmationCode))
}

func TestInitiateAuthUsesSessionToken(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: authResult(t, "fresh-refresh"),
	}}
	c := newTestClient(t, api, "")

	tokens, err := c.InitiateAuth(context.Background(), "user@example.com", "opaque-session")
	require.NoError(t, err)

	assert.Equal(t, types.AuthFlowTypeUserAuth, api.initiateIn.AuthFlow)
	assert.Equal(t, "opaque-session", aws.ToString(api.initiateIn.Session))
	assert.Equal(t, "user@example.com", api.initiateIn.AuthParameters["USERNAME"])
	assert.Equal(t, "fresh-refresh", tokens.RefreshToken)
}

func TestTokensFromResultMissingIDToken(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken: aws.String("access-token"),
			ExpiresIn:   3600,
		},
	}}
	c := newTestClient(t, api, "")

	_, err := c.ExchangeRefreshToken(context.Background(), "old-refresh")
	require.Error(t, err)
}

func TestSecretHash(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, "secret")
	// HMAC-SHA256("user@example.com" + "client-1", "secret"), base64.
	got := c.secretHash("user@example.com")
	assert.NotEmpty(t, got)
	assert.NotEqual(t, got, c.secretHash("other@example.com"))
	assert.Equal(t, got, c.secretHash("user@example.com"))
}

func TestNewRequiresClientID(t *testing.T) {
	_, err := New(&fakeAPI{}, Config{})
	assert.Error(t, err)
}
