package lock

import "errors"

// Kind classifies what a lock protects.
type Kind string

const (
	// KindEditingSchedule guards a daily schedule being edited.
	KindEditingSchedule Kind = "editing_schedule"

	// KindEditingTemplate guards a schedule template being edited.
	KindEditingTemplate Kind = "editing_template"
)

// Lock is one advisory edit lock. The full set is persisted as a single
// JSON array and rewritten on every mutation.
type Lock struct {
	ResourceID string `json:"resourceId"`
	Kind       Kind   `json:"lockType"`
	Token      string `json:"sessionId"`
	Username   string `json:"username"`
	// AcquiredAt is unix seconds; refreshed on idempotent re-acquire.
	AcquiredAt int64 `json:"timestamp"`
}

// Sentinel errors for lock operations.
var (
	// ErrConflict means the resource is locked by a different session.
	ErrConflict = errors.New("resource locked by another session")
)

// ScheduleResourceID maps a schedule UID to its lock resource id.
func ScheduleResourceID(uid string) string {
	return "schedule_" + uid
}
