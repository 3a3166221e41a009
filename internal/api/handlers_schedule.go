package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/lock"
	"github.com/nerrad567/fertigate-core/internal/schedule"
)

// scheduleListEntry is one row of the GET /api/schedules response.
type scheduleListEntry struct {
	ScheduleUID string             `json:"scheduleUID"`
	Locked      schedule.LockLevel `json:"locked"`
	LockedBy    string             `json:"lockedBy,omitempty"`
}

// scheduleCreateRequest is the POST /api/schedule body.
type scheduleCreateRequest struct {
	Name string `json:"name"`
}

// scheduleUpdateRequest is the PUT /api/schedule body. EndTime and
// CalculatedDuration on events are derived server-side; client-supplied
// values are ignored.
type scheduleUpdateRequest struct {
	ScheduleName     string                     `json:"scheduleName"`
	LightsOnTime     int                        `json:"lightsOnTime"`
	LightsOffTime    int                        `json:"lightsOffTime"`
	AutopilotWindows []schedule.AutopilotWindow `json:"autopilotWindows"`
	DurationEvents   []schedule.DurationEvent   `json:"durationEvents"`
	VolumeEvents     []schedule.VolumeEvent     `json:"volumeEvents"`
}

// handleListSchedules returns the schedule index with live lock holders.
func (s *Server) handleListSchedules(w http.ResponseWriter, _ *http.Request) {
	index := s.schedules.List()

	entries := make([]scheduleListEntry, 0, len(index))
	for _, row := range index {
		entry := scheduleListEntry{
			ScheduleUID: row.ScheduleUID,
			Locked:      row.Locked,
		}
		if held, ok := s.locks.Info(lock.ScheduleResourceID(row.ScheduleUID)); ok {
			entry.LockedBy = held.Username
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleReconcileSchedules forces an index rebuild against the schedule
// directory, recovering from files added or removed behind the store's
// back.
func (s *Server) handleReconcileSchedules(w http.ResponseWriter, r *http.Request) {
	added, removed, err := s.schedules.Reconcile()
	if err != nil {
		s.logger.Error("schedule reconcile failed", "error", err)
		writeInternalError(w, "could not reconcile schedule index")
		return
	}

	sess := s.sessionFrom(r)
	if added > 0 || removed > 0 {
		s.record(r.Context(), audit.Entry{
			Action:   audit.ActionUpdate,
			Resource: "schedule",
			Username: sess.Username,
			Source:   "api",
			Details:  map[string]any{"reconcile_added": added, "reconcile_removed": removed},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"added":   added,
		"removed": removed,
	})
}

// handleGetSchedule returns one full schedule by uid.
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeBadRequest(w, "uid query parameter is required")
		return
	}

	sched, err := s.schedules.Get(uid)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("schedule read failed", "uid", uid, "error", err)
		writeInternalError(w, "could not read schedule")
		return
	}

	writeJSON(w, http.StatusOK, sched)
}

// handleCreateSchedule creates an empty named schedule and returns its
// generated uid.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	sched, err := s.schedules.Create(req.Name)
	if err != nil {
		s.logger.Error("schedule create failed", "name", req.Name, "error", err)
		writeInternalError(w, "could not create schedule")
		return
	}

	sess := s.sessionFrom(r)
	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionCreate,
		Resource:   "schedule",
		ResourceID: sched.ScheduleUID,
		Username:   sess.Username,
		Source:     "api",
		Details:    map[string]any{"name": sched.ScheduleName},
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"scheduleUID":  sched.ScheduleUID,
		"scheduleName": sched.ScheduleName,
	})
}

// handleUpdateSchedule replaces a schedule's contents. The caller's
// session takes (or refreshes) the edit lock and keeps it afterwards,
// so a client saving repeatedly holds the lock for the whole editing
// session.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeBadRequest(w, "uid query parameter is required")
		return
	}

	sess := s.sessionFrom(r)
	if !s.guardScheduleMutation(w, uid, sess.Token, sess.Username) {
		return
	}

	var req scheduleUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.schedules.Get(uid)
	if err != nil {
		// Index row existed but the file is gone or unreadable.
		writeNotFound(w, "schedule not found")
		return
	}

	name := req.ScheduleName
	if name == "" {
		name = existing.ScheduleName
	}
	updated := &schedule.Schedule{
		ScheduleName:     name,
		ScheduleUID:      uid,
		LightsOnTime:     req.LightsOnTime,
		LightsOffTime:    req.LightsOffTime,
		AutopilotWindows: []schedule.AutopilotWindow{},
		DurationEvents:   []schedule.DurationEvent{},
		VolumeEvents:     []schedule.VolumeEvent{},
	}

	// Validation is all-or-nothing: the stored schedule is untouched
	// until every event has passed the overlap and limit checks.
	for _, win := range req.AutopilotWindows {
		if err := schedule.AddAutopilotWindow(updated, win); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	if err := schedule.AddDurationEvents(updated, req.DurationEvents); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := schedule.AddVolumeEvents(updated, req.VolumeEvents); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.schedules.Save(updated); err != nil {
		s.logger.Error("schedule save failed", "uid", uid, "error", err)
		writeInternalError(w, "could not save schedule")
		return
	}

	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionUpdate,
		Resource:   "schedule",
		ResourceID: uid,
		Username:   sess.Username,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteSchedule removes a schedule and releases the caller's
// edit lock on success.
func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeBadRequest(w, "uid query parameter is required")
		return
	}

	sess := s.sessionFrom(r)
	if !s.guardScheduleMutation(w, uid, sess.Token, sess.Username) {
		return
	}

	if err := s.schedules.Delete(uid); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("schedule delete failed", "uid", uid, "error", err)
		writeInternalError(w, "could not delete schedule")
		return
	}

	//nolint:errcheck // lock file rewrite failure is repaired by the sweep
	s.locks.Release(lock.ScheduleResourceID(uid), sess.Token)

	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionDelete,
		Resource:   "schedule",
		ResourceID: uid,
		Username:   sess.Username,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, map[string]any{"deleted": uid})
}

// handleAcquireScheduleLock takes an explicit edit lock on a schedule.
func (s *Server) handleAcquireScheduleLock(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeBadRequest(w, "uid query parameter is required")
		return
	}
	if _, ok := s.schedules.LockLevel(uid); !ok {
		writeNotFound(w, "schedule not found")
		return
	}

	sess := s.sessionFrom(r)
	resource := lock.ScheduleResourceID(uid)
	if err := s.locks.Acquire(resource, lock.KindEditingSchedule, sess.Token, sess.Username); err != nil {
		if errors.Is(err, lock.ErrConflict) {
			s.writeLockConflict(w, resource)
			return
		}
		s.logger.Error("lock acquire failed", "resource", resource, "error", err)
		writeInternalError(w, "could not acquire lock")
		return
	}

	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionLockAcquire,
		Resource:   "schedule",
		ResourceID: uid,
		Username:   sess.Username,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, map[string]any{"locked": uid})
}

// handleReleaseScheduleLock drops the caller's edit lock on a schedule.
// Releasing a lock the caller does not hold is a no-op, not an error.
func (s *Server) handleReleaseScheduleLock(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeBadRequest(w, "uid query parameter is required")
		return
	}

	sess := s.sessionFrom(r)
	released, err := s.locks.Release(lock.ScheduleResourceID(uid), sess.Token)
	if err != nil {
		s.logger.Error("lock release failed", "uid", uid, "error", err)
		writeInternalError(w, "could not release lock")
		return
	}

	if released {
		s.record(r.Context(), audit.Entry{
			Action:     audit.ActionLockRelease,
			Resource:   "schedule",
			ResourceID: uid,
			Username:   sess.Username,
			Source:     "api",
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"released": released})
}

// guardScheduleMutation runs the shared precondition chain for PUT and
// DELETE: the schedule must exist (404), must not carry a persistent
// lock (403), and the caller must hold or win the edit lock (409).
// Writes the error response and returns false when any check fails.
func (s *Server) guardScheduleMutation(w http.ResponseWriter, uid, token, username string) bool {
	level, ok := s.schedules.LockLevel(uid)
	if !ok {
		writeNotFound(w, "schedule not found")
		return false
	}
	if level != schedule.Unlocked {
		writeForbidden(w, fmt.Sprintf("schedule is locked (level %d)", level))
		return false
	}

	resource := lock.ScheduleResourceID(uid)
	if err := s.locks.Acquire(resource, lock.KindEditingSchedule, token, username); err != nil {
		if errors.Is(err, lock.ErrConflict) {
			s.writeLockConflict(w, resource)
			return false
		}
		s.logger.Error("lock acquire failed", "resource", resource, "error", err)
		writeInternalError(w, "could not acquire lock")
		return false
	}

	return true
}

// writeLockConflict emits a 409 naming the current holder so the UI can
// show who is editing.
func (s *Server) writeLockConflict(w http.ResponseWriter, resource string) {
	holder := "another session"
	if held, ok := s.locks.Info(resource); ok && held.Username != "" {
		holder = held.Username
	}
	writeConflict(w, "locked by "+holder)
}

// decodeJSON decodes a request body, mapping oversized bodies to 413
// and anything else unparseable to 400. Returns false after writing the
// error response.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writePayloadTooLarge(w, "request body exceeds schedule size limit")
			return false
		}
		writeBadRequest(w, "malformed JSON body")
		return false
	}
	return true
}
