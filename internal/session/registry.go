package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fertigate-core/internal/auth"
)

// tokenBytes is the entropy of a session token before hex encoding.
const tokenBytes = 32

// Logger is the minimal logging interface the registry needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Registry is the in-memory table of active sessions.
//
// All state lives behind one mutex; there is no ambient global table.
// Every teardown path (logout, expiry, fingerprint mismatch, sweep)
// releases the session's resource locks through the LockReleaser.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout time.Duration
	locks   LockReleaser
	logger  Logger

	now func() time.Time // injectable for tests
}

// NewRegistry creates a session registry.
//
// Parameters:
//   - timeout: idle age after which a session is torn down
//   - locks: lock registry notified on every session teardown
//   - logger: may be nil
func NewRegistry(timeout time.Duration, locks LockReleaser, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}
}

// Fingerprint derives the client fingerprint from transport attributes.
// This is a theft-cost heuristic, not cryptographic binding: a token
// replayed from a different address or client string is rejected.
func Fingerprint(client ClientContext) string {
	sum := sha256.Sum256([]byte(client.RemoteIP + client.UserAgent))
	return hex.EncodeToString(sum[:])
}

// Create generates a new session for an authenticated principal.
//
// The token is 32 bytes from crypto/rand, hex-encoded. Fails only if the
// entropy source fails.
func (r *Registry) Create(username string, role auth.Role, client ClientContext) (Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return Session{}, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := r.now()
	s := &Session{
		Token:       token,
		Username:    username,
		Role:        role,
		Fingerprint: Fingerprint(client),
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	r.mu.Lock()
	r.sessions[token] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created",
		"username", username,
		"role", string(role),
		"active_sessions", count,
	)

	return *s, nil
}

// Validate checks the client's token and fingerprint and refreshes the
// session's last-seen time.
//
// Fails closed: absent token, unknown token, idle timeout exceeded, or
// fingerprint mismatch all return an error. When the failure matches a
// stored session (expiry, mismatch) the session is torn down immediately,
// locks included, rather than left dangling.
func (r *Registry) Validate(client ClientContext) (Session, error) {
	if client.Token == "" {
		return Session{}, ErrNoToken
	}

	r.mu.Lock()
	s, ok := r.sessions[client.Token]
	if !ok {
		r.mu.Unlock()
		return Session{}, ErrUnknownToken
	}

	now := r.now()
	if now.Sub(s.LastSeenAt) > r.timeout {
		delete(r.sessions, client.Token)
		r.mu.Unlock()
		r.releaseLocks(client.Token)
		r.logger.Info("session expired during validation", "username", s.Username)
		return Session{}, ErrExpired
	}

	if Fingerprint(client) != s.Fingerprint {
		delete(r.sessions, client.Token)
		r.mu.Unlock()
		r.releaseLocks(client.Token)
		r.logger.Warn("session fingerprint mismatch, possible token theft",
			"username", s.Username,
			"remote_ip", client.RemoteIP,
		)
		return Session{}, ErrFingerprintMismatch
	}

	s.LastSeenAt = now
	snapshot := *s
	r.mu.Unlock()

	return snapshot, nil
}

// Invalidate removes a session and releases its locks. Idempotent:
// returns false if no such session existed.
func (r *Registry) Invalidate(token string) bool {
	r.mu.Lock()
	s, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.releaseLocks(token)
	r.logger.Info("session invalidated", "username", s.Username)
	return true
}

// SweepExpired tears down every session whose idle age exceeds the
// timeout. Returns the number removed.
func (r *Registry) SweepExpired() int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for token, s := range r.sessions {
		if now.Sub(s.LastSeenAt) > r.timeout {
			expired = append(expired, s)
			delete(r.sessions, token)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.releaseLocks(s.Token)
		r.logger.Info("session swept", "username", s.Username)
	}

	return len(expired)
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run drives the expiry sweep on a fixed interval until ctx is cancelled.
// Intended to be started once from main.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.SweepExpired(); n > 0 {
				r.logger.Debug("session sweep complete", "removed", n)
			}
		}
	}
}

// releaseLocks notifies the lock registry of a teardown. The registry
// mutex must not be held when calling out.
func (r *Registry) releaseLocks(token string) {
	if r.locks == nil {
		return
	}
	if n := r.locks.ReleaseForSession(token); n > 0 {
		r.logger.Debug("released locks for ended session", "count", n)
	}
}
