package session

import (
	"errors"
	"time"

	"github.com/nerrad567/fertigate-core/internal/auth"
)

// Session is one authenticated client session. Owned exclusively by the
// Registry; callers receive copies, never pointers into the table.
type Session struct {
	// Token is the opaque bearer credential, 32 random bytes hex-encoded.
	Token string

	// Username is the authenticated principal.
	Username string

	// Role is the principal's authorisation tier at login time.
	Role auth.Role

	// Fingerprint binds the token to coarse client transport attributes.
	Fingerprint string

	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ClientContext carries the transport attributes of one HTTP request that
// the registry needs for fingerprinting and token lookup.
type ClientContext struct {
	// Token extracted from the session cookie; empty if absent.
	Token string

	// RemoteIP is the client address without port.
	RemoteIP string

	// UserAgent is the declared client identity string.
	UserAgent string
}

// LockReleaser is the lock-registry surface the session registry needs:
// bulk release on session teardown. Consumer-defined to avoid an import
// cycle with the lock package.
type LockReleaser interface {
	ReleaseForSession(token string) int
}

// Sentinel errors for session validation.
var (
	ErrNoToken             = errors.New("no session token presented")
	ErrUnknownToken        = errors.New("unknown session token")
	ErrExpired             = errors.New("session expired")
	ErrFingerprintMismatch = errors.New("session fingerprint mismatch")
)
