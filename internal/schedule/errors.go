package schedule

import "errors"

// Sentinel errors for schedule operations.
var (
	// ErrNotFound means no schedule exists for the given UID.
	ErrNotFound = errors.New("schedule not found")

	// ErrInvalidEvent means an event failed bounds or parameter validation.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrOverlap means an event collides with an existing event per the
	// overlap rules.
	ErrOverlap = errors.New("event overlaps an existing event")

	// ErrEventLimit means the combined duration+volume event cap would be
	// exceeded.
	ErrEventLimit = errors.New("combined duration and volume event limit exceeded")

	// ErrInvalidSchedule means the schedule is missing identity fields.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrIndexWrite means the schedule file mutation succeeded but the
	// index rewrite failed, leaving the store inconsistent until the next
	// reconciliation.
	ErrIndexWrite = errors.New("schedule index write failed")
)
