package auth

import "testing"

type recordingLogger struct {
	infos []string
	warns []string
}

func (l *recordingLogger) Info(msg string, _ ...any) { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }

func TestSeedOwner_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	logger := &recordingLogger{}

	password, err := SeedOwner(store, logger)
	if err != nil {
		t.Fatalf("SeedOwner() error = %v", err)
	}

	if password == "" {
		t.Fatal("SeedOwner() returned empty password for empty store")
	}
	if len(password) != seedPasswordBytes*2 {
		t.Errorf("password length = %d, want %d hex chars", len(password), seedPasswordBytes*2)
	}

	owner, err := store.Get("owner")
	if err != nil {
		t.Fatalf("Get(owner) error = %v", err)
	}
	if owner.Role != RoleOwner {
		t.Errorf("seeded role = %q, want %q", owner.Role, RoleOwner)
	}

	ok, err := VerifyPassword(password, owner.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("seeded password does not verify against stored hash")
	}

	if len(logger.warns) == 0 {
		t.Error("expected a warning log announcing the generated password")
	}
}

func TestSeedOwner_SkipsWhenUsersExist(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(testUser("alice", RoleManager)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	password, err := SeedOwner(store, &recordingLogger{})
	if err != nil {
		t.Fatalf("SeedOwner() error = %v", err)
	}
	if password != "" {
		t.Error("SeedOwner() seeded despite existing users")
	}

	if _, err := store.Get("owner"); err == nil {
		t.Error("owner account created despite existing users")
	}
}
