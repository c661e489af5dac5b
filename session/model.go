package session

import "time"

// Data is the access-session value object cached under an opaque
// access-session id. It is re-created on every refresh and expires with the
// cache TTL.
type Data struct {
	IssuedAt        time.Time `json:"issued_at"`
	AccessToken     string    `json:"access_token"`
	IDToken         string    `json:"id_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`

	// RefreshToken is populated only between a provider exchange and
	// persistence. Save strips it; a cached payload never carries it.
	RefreshToken     string    `json:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`

	Subject string `json:"sub"`
	Email   string `json:"email"`
}
