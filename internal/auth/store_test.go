package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func testUser(username string, role Role) *User {
	return &User{
		Username:     username,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Role:         role,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	u := testUser("alice", RoleManager)
	if err := store.Create(u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if got.Role != RoleManager {
		t.Errorf("Role = %q, want %q", got.Role, RoleManager)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(testUser("alice", RoleViewer)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := store.Create(testUser("alice", RoleOwner))
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Create() duplicate error = %v, want ErrUsernameExists", err)
	}

	// Case-insensitive collision: same file on disk.
	err = store.Create(testUser("Alice", RoleOwner))
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Create() case-variant error = %v, want ErrUsernameExists", err)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	u := testUser("bob", RoleViewer)
	if err := store.Create(u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store.now = func() time.Time { return time.Unix(2000, 0) }
	u.Role = RoleManager
	if err := store.Update(u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get("bob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Role != RoleManager {
		t.Errorf("Role after update = %q, want %q", got.Role, RoleManager)
	}
	if !got.UpdatedAt.Equal(time.Unix(2000, 0)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, time.Unix(2000, 0))
	}

	if err := store.Update(testUser("ghost", RoleViewer)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() missing user error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(testUser("carol", RoleOwner)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete("carol"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get("carol"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrUserNotFound", err)
	}

	if err := store.Delete("carol"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() absent user error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_ListSkipsGarbage(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(testUser("alice", RoleViewer)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(testUser("bob", RoleManager)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Corrupt file and a non-JSON file must not break the listing.
	if err := os.WriteFile(filepath.Join(store.dir, "broken.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.dir, "readme.txt"), []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}

	users, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("List() returned %d users, want 2", len(users))
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestStore_PathTraversalRejected(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"..", ".", "../../etc/passwd", "a/b"} {
		if _, err := store.Get(name); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidUsername", name, err)
		}
	}
}
