package schedule

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

// Logger is the minimal logging interface the store needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Store persists schedules as one JSON file per schedule plus a single
// index file. The index is the authority for which schedules exist and
// for their persistent lock level; it is reconciled against the directory
// at startup and on demand.
//
// All mutations are serialised behind one mutex. A failed index rewrite
// after a successful file mutation is surfaced as ErrIndexWrite rather
// than rolled back; Reconcile repairs the drift.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	dir       string
	indexPath string
	index     []IndexEntry
	logger    Logger

	now func() time.Time // injectable for tests
}

// NewStore opens (or initialises) a schedule store rooted at dir with its
// index at indexPath. The index is loaded and reconciled against the
// directory before the store is returned.
func NewStore(dir, indexPath string, logger Logger) (*Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating schedules directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		indexPath: indexPath,
		logger:    logger,
		now:       time.Now,
	}

	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	if _, _, err := s.Reconcile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Create builds a new empty schedule for the given display name, assigns
// it a UID, persists it, and indexes it as unlocked.
func (s *Store) Create(name string) (*Schedule, error) {
	if name == "" {
		return nil, fmt.Errorf("creating schedule: %w", ErrInvalidSchedule)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	uid := GenerateUID(name, now)
	// Same name created twice inside one second: bump until free.
	for i := 1; s.fileExists(uid); i++ {
		uid = GenerateUID(name, now.Add(time.Duration(i)*time.Second))
	}

	sched := &Schedule{
		ScheduleName:     name,
		ScheduleUID:      uid,
		AutopilotWindows: []AutopilotWindow{},
		DurationEvents:   []DurationEvent{},
		VolumeEvents:     []VolumeEvent{},
	}

	if err := s.writeSchedule(sched); err != nil {
		return nil, err
	}

	s.index = append(s.index, IndexEntry{ScheduleUID: uid, Locked: Unlocked})
	if err := s.saveIndex(); err != nil {
		// File exists but is unindexed until the next reconcile.
		return sched, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	s.logger.Info("schedule created", "uid", uid, "name", name)
	return sched, nil
}

// Get loads a schedule by UID. Returns ErrNotFound if absent.
func (s *Store) Get(uid string) (*Schedule, error) {
	if !validUID(uid) {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readSchedule(uid)
}

// Save rewrites an existing schedule's file. The schedule must carry its
// identity fields; a UID never seen before is appended to the index
// immediately.
func (s *Store) Save(sched *Schedule) error {
	if !sched.Valid() {
		return ErrInvalidSchedule
	}
	if !validUID(sched.ScheduleUID) {
		return ErrInvalidSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeSchedule(sched); err != nil {
		return err
	}

	if s.findIndex(sched.ScheduleUID) == -1 {
		s.index = append(s.index, IndexEntry{ScheduleUID: sched.ScheduleUID, Locked: Unlocked})
		if err := s.saveIndex(); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	}

	return nil
}

// Delete removes a schedule's file and its index entry. If the index
// rewrite fails after the file is already gone, the operation fails with
// ErrIndexWrite; the file removal is not undone.
func (s *Store) Delete(uid string) error {
	if !validUID(uid) {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.schedulePath(uid)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("removing schedule file: %w", err)
	}

	if i := s.findIndex(uid); i != -1 {
		s.index = append(s.index[:i], s.index[i+1:]...)
		if err := s.saveIndex(); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	} else {
		s.logger.Warn("deleted schedule was not in the index", "uid", uid)
	}

	s.logger.Info("schedule deleted", "uid", uid)
	return nil
}

// List returns a snapshot of the index.
func (s *Store) List() []IndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]IndexEntry, len(s.index))
	copy(out, s.index)
	return out
}

// LockLevel returns the persistent lock level for a UID. The second
// return is false when the UID is not indexed.
func (s *Store) LockLevel(uid string) (LockLevel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.findIndex(uid); i != -1 {
		return s.index[i].Locked, true
	}
	return Unlocked, false
}

// SetLockLevel updates the persistent lock level for a UID and persists
// the index.
func (s *Store) SetLockLevel(uid string, level LockLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findIndex(uid)
	if i == -1 {
		return ErrNotFound
	}
	s.index[i].Locked = level
	if err := s.saveIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

// Reconcile synchronises the index with the schedule files actually on
// disk: files without entries are indexed as unlocked, entries without
// files are dropped. Returns the number of entries added and removed.
func (s *Store) Reconcile() (added, removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("listing schedules directory: %w", err)
	}

	onDisk := make(map[string]bool)
	indexBase := filepath.Base(s.indexPath)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || name == indexBase {
			continue
		}
		onDisk[strings.TrimSuffix(name, ".json")] = true
	}

	indexed := make(map[string]bool, len(s.index))
	kept := s.index[:0]
	for _, entry := range s.index {
		if !onDisk[entry.ScheduleUID] {
			removed++
			s.logger.Warn("index entry without schedule file dropped", "uid", entry.ScheduleUID)
			continue
		}
		indexed[entry.ScheduleUID] = true
		kept = append(kept, entry)
	}
	s.index = kept

	for uid := range onDisk {
		if !indexed[uid] {
			s.index = append(s.index, IndexEntry{ScheduleUID: uid, Locked: Unlocked})
			added++
			s.logger.Info("unindexed schedule file recovered", "uid", uid)
		}
	}

	if added > 0 || removed > 0 {
		if err := s.saveIndex(); err != nil {
			return added, removed, fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	}
	return added, removed, nil
}

// schedulePath maps a UID to its file path.
func (s *Store) schedulePath(uid string) string {
	return filepath.Join(s.dir, uid+".json")
}

// fileExists reports whether a schedule file exists. Caller holds the mutex.
func (s *Store) fileExists(uid string) bool {
	_, err := os.Stat(s.schedulePath(uid))
	return err == nil
}

// findIndex returns the index position of a UID, or -1. Caller holds the mutex.
func (s *Store) findIndex(uid string) int {
	for i := range s.index {
		if s.index[i].ScheduleUID == uid {
			return i
		}
	}
	return -1
}

// readSchedule loads and decodes one schedule file. Caller holds the mutex.
func (s *Store) readSchedule(uid string) (*Schedule, error) {
	data, err := os.ReadFile(s.schedulePath(uid))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	var sched Schedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return nil, fmt.Errorf("parsing schedule %s: %w", uid, err)
	}
	return &sched, nil
}

// writeSchedule encodes and writes one schedule file via a temp-file
// rename. Caller holds the mutex.
func (s *Store) writeSchedule(sched *Schedule) error {
	data, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	path := s.schedulePath(sched.ScheduleUID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing schedule file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing schedule file: %w", err)
	}
	return nil
}

// loadIndex reads the index file. Missing reads as empty; corrupt is
// logged and rebuilt by the startup reconcile. Caller need not hold the
// mutex (called before the store is shared).
func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.index = nil
			return nil
		}
		return fmt.Errorf("reading schedule index: %w", err)
	}

	if err := json.Unmarshal(data, &s.index); err != nil {
		s.logger.Warn("schedule index corrupt, rebuilding from directory", "error", err)
		s.index = nil
	}
	return nil
}

// saveIndex rewrites the index file via a temp-file rename. Caller holds
// the mutex.
func (s *Store) saveIndex() error {
	if s.index == nil {
		s.index = []IndexEntry{}
	}
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule index: %w", err)
	}

	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing schedule index: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath); err != nil {
		return fmt.Errorf("replacing schedule index: %w", err)
	}
	return nil
}
