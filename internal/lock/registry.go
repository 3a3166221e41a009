package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Logger is the minimal logging interface the registry needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Registry owns the persisted set of resource edit locks.
//
// The on-disk representation is one JSON array; every mutation loads the
// whole set, changes it in memory, and rewrites the file. That pattern is
// only safe if mutations never interleave, so every operation runs under
// a single mutex. The set is small (one lock per schedule being edited)
// and the O(n) I/O is negligible.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	path    string
	timeout time.Duration // 0 disables expiry
	logger  Logger

	now func() time.Time // injectable for tests
}

// NewRegistry creates a lock registry persisting to path. The file is
// created on the first mutation; a missing file reads as an empty set.
func NewRegistry(path string, timeout time.Duration, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		path:    path,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Acquire takes the edit lock on a resource for a session.
//
// Re-acquiring a lock the same session already holds refreshes its
// timestamp and succeeds: clients renew their lock as a heartbeat while
// editing. A lock held by a different session fails with ErrConflict.
func (r *Registry) Acquire(resourceID string, kind Kind, token, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		return err
	}

	for i := range locks {
		if locks[i].ResourceID != resourceID {
			continue
		}
		if locks[i].Token != token {
			r.logger.Debug("lock conflict",
				"resource", resourceID,
				"held_by", locks[i].Username,
			)
			return fmt.Errorf("acquiring %s: %w", resourceID, ErrConflict)
		}
		// Same holder: refresh.
		locks[i].AcquiredAt = r.now().Unix()
		locks[i].Kind = kind
		return r.save(locks)
	}

	locks = append(locks, Lock{
		ResourceID: resourceID,
		Kind:       kind,
		Token:      token,
		Username:   username,
		AcquiredAt: r.now().Unix(),
	})

	if err := r.save(locks); err != nil {
		return err
	}

	r.logger.Info("lock acquired", "resource", resourceID, "username", username)
	return nil
}

// Release removes the lock on a resource if and only if it is held by the
// given token. Returns true when a lock was removed; false when no lock
// existed or it is held by another session (use Info to distinguish).
func (r *Registry) Release(resourceID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		return false, err
	}

	for i := range locks {
		if locks[i].ResourceID == resourceID && locks[i].Token == token {
			locks = append(locks[:i], locks[i+1:]...)
			if err := r.save(locks); err != nil {
				return false, err
			}
			r.logger.Info("lock released", "resource", resourceID)
			return true, nil
		}
	}

	return false, nil
}

// ReleaseForSession removes every lock held by a session. Called on
// logout, expiry, and hijack teardown. Returns the number removed.
func (r *Registry) ReleaseForSession(token string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		r.logger.Warn("lock file unreadable during session release", "error", err)
		return 0
	}

	kept := locks[:0]
	removed := 0
	for _, l := range locks {
		if l.Token == token {
			removed++
			continue
		}
		kept = append(kept, l)
	}

	if removed == 0 {
		return 0
	}

	if err := r.save(kept); err != nil {
		r.logger.Warn("persisting lock set after session release failed", "error", err)
		return 0
	}

	r.logger.Info("session locks released", "count", removed)
	return removed
}

// Info returns the lock on a resource, if any.
func (r *Registry) Info(resourceID string) (Lock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		r.logger.Warn("lock file unreadable", "error", err)
		return Lock{}, false
	}

	for _, l := range locks {
		if l.ResourceID == resourceID {
			return l, true
		}
	}
	return Lock{}, false
}

// IsLocked reports whether a resource currently has an edit lock.
func (r *Registry) IsLocked(resourceID string) bool {
	_, ok := r.Info(resourceID)
	return ok
}

// All returns a snapshot of every active lock.
func (r *Registry) All() []Lock {
	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		r.logger.Warn("lock file unreadable", "error", err)
		return nil
	}
	return locks
}

// SweepExpired removes locks older than the configured timeout. A zero
// timeout disables expiry entirely. Returns the number removed.
func (r *Registry) SweepExpired() int {
	if r.timeout == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	locks, err := r.load()
	if err != nil {
		r.logger.Warn("lock file unreadable during sweep", "error", err)
		return 0
	}

	cutoff := r.now().Add(-r.timeout).Unix()
	kept := locks[:0]
	removed := 0
	for _, l := range locks {
		if l.AcquiredAt < cutoff {
			removed++
			r.logger.Info("expired lock swept",
				"resource", l.ResourceID,
				"username", l.Username,
			)
			continue
		}
		kept = append(kept, l)
	}

	if removed == 0 {
		return 0
	}

	if err := r.save(kept); err != nil {
		r.logger.Warn("persisting lock set after sweep failed", "error", err)
		return 0
	}
	return removed
}

// Run drives the expiry sweep on a fixed interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.SweepExpired(); n > 0 {
				r.logger.Debug("lock sweep complete", "removed", n)
			}
		}
	}
}

// load reads the full lock set. A missing file is an empty set; a corrupt
// file is logged and treated as empty so one bad write cannot brick
// locking forever (the next mutation rewrites it cleanly).
// Caller holds the mutex.
func (r *Registry) load() ([]Lock, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading lock file: %w", err)
	}

	var locks []Lock
	if err := json.Unmarshal(data, &locks); err != nil {
		r.logger.Warn("lock file corrupt, starting with empty set", "error", err)
		return nil, nil
	}
	return locks, nil
}

// save rewrites the full lock set via a temp-file rename. Caller holds
// the mutex.
func (r *Registry) save(locks []Lock) error {
	if locks == nil {
		locks = []Lock{}
	}
	data, err := json.MarshalIndent(locks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lock set: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing lock file: %w", err)
	}
	return nil
}
