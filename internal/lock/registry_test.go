package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, timeout time.Duration) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "active_locks.json")
	return NewRegistry(path, timeout, nil)
}

func TestRegistry_AcquireAndInfo(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	info, ok := reg.Info("schedule_abc")
	if !ok {
		t.Fatal("Info() = not found after acquire")
	}
	if info.Token != "tok1" || info.Username != "alice" {
		t.Errorf("Info() = %+v, want holder tok1/alice", info)
	}
	if !reg.IsLocked("schedule_abc") {
		t.Error("IsLocked() = false after acquire")
	}
	if reg.IsLocked("schedule_other") {
		t.Error("IsLocked() = true for never-locked resource")
	}
}

func TestRegistry_AcquireIdempotentSameHolder(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	base := time.Unix(50000, 0)
	reg.now = func() time.Time { return base }

	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Re-acquire by the same session refreshes the timestamp.
	reg.now = func() time.Time { return base.Add(5 * time.Minute) }
	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}

	info, ok := reg.Info("schedule_abc")
	if !ok {
		t.Fatal("Info() = not found")
	}
	if info.AcquiredAt != base.Add(5*time.Minute).Unix() {
		t.Errorf("AcquiredAt = %d, want refreshed %d", info.AcquiredAt, base.Add(5*time.Minute).Unix())
	}
	if info.Token != "tok1" {
		t.Errorf("holder changed on re-acquire: %q", info.Token)
	}
}

func TestRegistry_AcquireConflict(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok2", "bob")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Acquire() by second session error = %v, want ErrConflict", err)
	}

	// Holder unchanged.
	info, _ := reg.Info("schedule_abc")
	if info.Token != "tok1" {
		t.Errorf("holder after failed acquire = %q, want tok1", info.Token)
	}
}

func TestRegistry_Release(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Wrong token cannot release.
	removed, err := reg.Release("schedule_abc", "tok2")
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if removed {
		t.Error("Release() with wrong token removed the lock")
	}

	removed, err = reg.Release("schedule_abc", "tok1")
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !removed {
		t.Error("Release() by holder = false")
	}
	if reg.IsLocked("schedule_abc") {
		t.Error("resource still locked after release")
	}

	// Releasing an absent lock reports false.
	removed, err = reg.Release("schedule_abc", "tok1")
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if removed {
		t.Error("Release() of absent lock = true")
	}
}

func TestRegistry_ReleaseForSession(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	for _, res := range []string{"schedule_a", "schedule_b", "schedule_c"} {
		if err := reg.Acquire(res, KindEditingSchedule, "tok1", "alice"); err != nil {
			t.Fatalf("Acquire(%s) error = %v", res, err)
		}
	}
	if err := reg.Acquire("schedule_d", KindEditingSchedule, "tok2", "bob"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if n := reg.ReleaseForSession("tok1"); n != 3 {
		t.Errorf("ReleaseForSession() = %d, want 3", n)
	}

	if reg.IsLocked("schedule_a") || reg.IsLocked("schedule_b") || reg.IsLocked("schedule_c") {
		t.Error("locks held by tok1 survived bulk release")
	}
	if !reg.IsLocked("schedule_d") {
		t.Error("lock held by another session was removed by bulk release")
	}

	if n := reg.ReleaseForSession("tok1"); n != 0 {
		t.Errorf("second ReleaseForSession() = %d, want 0", n)
	}
}

func TestRegistry_SweepExpired(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	base := time.Unix(50000, 0)
	reg.now = func() time.Time { return base }
	if err := reg.Acquire("schedule_old", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	reg.now = func() time.Time { return base.Add(20 * time.Minute) }
	if err := reg.Acquire("schedule_new", KindEditingSchedule, "tok2", "bob"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// At +31m the first lock is 31m old, the second 11m.
	reg.now = func() time.Time { return base.Add(31 * time.Minute) }
	if n := reg.SweepExpired(); n != 1 {
		t.Errorf("SweepExpired() = %d, want 1", n)
	}

	if reg.IsLocked("schedule_old") {
		t.Error("expired lock survived sweep")
	}
	if !reg.IsLocked("schedule_new") {
		t.Error("unexpired lock removed by sweep")
	}
}

func TestRegistry_SweepDisabledWithZeroTimeout(t *testing.T) {
	reg := newTestRegistry(t, 0)

	reg.now = func() time.Time { return time.Unix(0, 0) }
	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Decades later the lock is still held.
	reg.now = func() time.Time { return time.Unix(0, 0).Add(200000 * time.Hour) }
	if n := reg.SweepExpired(); n != 0 {
		t.Errorf("SweepExpired() = %d with expiry disabled, want 0", n)
	}
	if !reg.IsLocked("schedule_abc") {
		t.Error("lock removed despite disabled expiry")
	}
}

func TestRegistry_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_locks.json")

	first := NewRegistry(path, 30*time.Minute, nil)
	if err := first.Acquire("schedule_abc", KindEditingTemplate, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// A fresh registry over the same file sees the lock.
	second := NewRegistry(path, 30*time.Minute, nil)
	info, ok := second.Info("schedule_abc")
	if !ok {
		t.Fatal("lock not visible to second registry instance")
	}
	if info.Kind != KindEditingTemplate || info.Username != "alice" {
		t.Errorf("persisted lock = %+v", info)
	}
}

func TestRegistry_FileFormat(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)
	reg.now = func() time.Time { return time.Unix(1700000000, 0) }

	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(reg.path)
	if err != nil {
		t.Fatalf("reading lock file: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("lock file is not a JSON array: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("lock file has %d entries, want 1", len(raw))
	}

	entry := raw[0]
	for _, key := range []string{"resourceId", "lockType", "sessionId", "username", "timestamp"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("lock file entry missing %q field", key)
		}
	}
}

func TestRegistry_CorruptFileRecovered(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	if err := os.WriteFile(reg.path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Corrupt file reads as empty and the next mutation rewrites it.
	if reg.IsLocked("schedule_abc") {
		t.Error("corrupt file reported a lock")
	}
	if err := reg.Acquire("schedule_abc", KindEditingSchedule, "tok1", "alice"); err != nil {
		t.Fatalf("Acquire() after corruption error = %v", err)
	}
	if !reg.IsLocked("schedule_abc") {
		t.Error("lock not visible after recovery")
	}
}

func TestRegistry_ConcurrentAcquires(t *testing.T) {
	reg := newTestRegistry(t, 30*time.Minute)

	// Concurrent acquires on distinct resources must not lose writes.
	var wg sync.WaitGroup
	resources := []string{"schedule_a", "schedule_b", "schedule_c", "schedule_d", "schedule_e"}
	for i, res := range resources {
		wg.Add(1)
		go func(res string, i int) {
			defer wg.Done()
			if err := reg.Acquire(res, KindEditingSchedule, "tok1", "alice"); err != nil {
				t.Errorf("Acquire(%s) error = %v", res, err)
			}
		}(res, i)
	}
	wg.Wait()

	for _, res := range resources {
		if !reg.IsLocked(res) {
			t.Errorf("lock on %s lost under concurrent acquires", res)
		}
	}
}
