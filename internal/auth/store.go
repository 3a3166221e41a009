package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store persists user accounts as one JSON file per user under a directory.
//
// All mutations are serialised behind a single mutex; the file set is small
// (a handful of accounts) so whole-file rewrites are cheap.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	dir string
	mu  sync.Mutex

	now func() time.Time // injectable for tests
}

// NewStore creates a user store rooted at dir, creating the directory
// if it does not exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating users directory: %w", err)
	}
	return &Store{
		dir: dir,
		now: time.Now,
	}, nil
}

// userPath maps a username to its file path. The username must already
// have passed IsValidUsername; "." and ".." are rejected outright so a
// username can never escape the store directory.
func (s *Store) userPath(username string) (string, error) {
	if !IsValidUsername(username) || username == "." || username == ".." {
		return "", ErrInvalidUsername
	}
	return filepath.Join(s.dir, strings.ToLower(username)+".json"), nil
}

// Get loads a user by username. Returns ErrUserNotFound if absent.
func (s *Store) Get(username string) (*User, error) {
	path, err := s.userPath(username)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readUser(path)
}

// readUser loads and validates one user file. Caller holds the mutex.
func (s *Store) readUser(path string) (*User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("reading user file: %w", err)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parsing user file %s: %w", filepath.Base(path), err)
	}
	if !u.Valid() {
		return nil, fmt.Errorf("user file %s: %w", filepath.Base(path), ErrInvalidRole)
	}
	return &u, nil
}

// Create persists a new user. Fails with ErrUsernameExists if a user file
// for that username (case-insensitive) already exists.
func (s *Store) Create(u *User) error {
	if !u.Valid() {
		return fmt.Errorf("creating user: account incomplete")
	}
	path, err := s.userPath(u.Username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return ErrUsernameExists
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.UpdatedAt = s.now()

	return s.writeUser(path, u)
}

// Update rewrites an existing user. Fails with ErrUserNotFound if absent.
func (s *Store) Update(u *User) error {
	if !u.Valid() {
		return fmt.Errorf("updating user: account incomplete")
	}
	path, err := s.userPath(u.Username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return ErrUserNotFound
	}

	u.UpdatedAt = s.now()
	return s.writeUser(path, u)
}

// Delete removes a user file. Returns ErrUserNotFound if absent.
func (s *Store) Delete(username string) error {
	path, err := s.userPath(username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrUserNotFound
		}
		return fmt.Errorf("removing user file: %w", err)
	}
	return nil
}

// List returns all stored users sorted by filename order of the directory
// listing. Unreadable or invalid files are skipped rather than failing the
// whole listing.
func (s *Store) List() ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing users directory: %w", err)
	}

	users := make([]*User, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		u, err := s.readUser(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// Count returns the number of stored user files.
func (s *Store) Count() (int, error) {
	users, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// writeUser marshals and writes one user file via a temp-file rename so a
// crash mid-write never leaves a truncated account. Caller holds the mutex.
func (s *Store) writeUser(path string, u *User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing user file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing user file: %w", err)
	}
	return nil
}
