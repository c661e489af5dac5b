package refresh

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the given id.
var ErrNotFound = errors.New("refresh session not found")

// Record is one durable refresh session.
type Record struct {
	// ID is the opaque refresh-session id carried by the RT_SID cookie.
	ID string
	// Subject and Email identify the owner as reported by the provider.
	Subject string
	Email   string
	// RefreshToken is the provider refresh token exchanged on every refresh.
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Store persists refresh-session records keyed by opaque id.
type Store interface {
	// Save writes a new record. Ids are minted by the caller and never reused.
	Save(ctx context.Context, rec *Record) error
	// Get returns the record for id, or [ErrNotFound]. Expired records are
	// returned unchanged; expiry enforcement belongs to the provider.
	Get(ctx context.Context, id string) (*Record, error)
}
