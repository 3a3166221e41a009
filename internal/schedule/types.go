package schedule

import "math"

// Times throughout this package are integer minutes since midnight,
// valid range [0,1439]. Durations are in seconds.

// minutesPerDayMax is the last valid minute of a day.
const minutesPerDayMax = 1439

// maxDurationVolumeEvents caps the combined duration+volume event count
// per schedule.
const maxDurationVolumeEvents = 100

// AutopilotWindow is a sensor-driven dosing window: within the window the
// controller doses whenever matric tension crosses the setpoint, then
// waits out the settling time.
type AutopilotWindow struct {
	StartTime     int     `json:"startTime"`
	EndTime       int     `json:"endTime"`
	MatricTension float64 `json:"matricTension"`
	DoseVolume    float64 `json:"doseVolume"`
	SettlingTime  int     `json:"settlingTime"`
	DoseDuration  int     `json:"doseDuration,omitempty"`
}

// Valid reports whether the window parameters are usable: times in range,
// start strictly before end, and either dosing parameters or a settling
// time present.
func (w AutopilotWindow) Valid() bool {
	if !timeInBounds(w.StartTime) || !timeInBounds(w.EndTime) {
		return false
	}
	if w.StartTime >= w.EndTime {
		return false
	}
	if (w.DoseVolume <= 0 || w.DoseDuration <= 0) && w.SettlingTime <= 0 {
		return false
	}
	return true
}

// DurationEvent runs an output for a fixed number of seconds from a start
// time. EndTime is derived, never client-supplied.
type DurationEvent struct {
	StartTime int `json:"startTime"`
	Duration  int `json:"duration"`
	EndTime   int `json:"endTime"`
}

// Valid reports whether the event parameters are usable.
func (e DurationEvent) Valid() bool {
	return timeInBounds(e.StartTime) && e.Duration > 0
}

// ComputeEndTime derives the event's end minute from its start and
// duration, clamped to the end of the day.
func (e *DurationEvent) ComputeEndTime() {
	e.EndTime = e.StartTime + int(math.Ceil(float64(e.Duration)/60.0))
	if e.EndTime > minutesPerDayMax {
		e.EndTime = minutesPerDayMax
	}
}

// VolumeEvent doses a fixed volume at a start time. CalculatedDuration is
// filled in when an instance is bound to a concrete output; templates
// carry -1.
type VolumeEvent struct {
	StartTime          int     `json:"startTime"`
	DoseVolume         float64 `json:"doseVolume"`
	CalculatedDuration int     `json:"calculatedDuration,omitempty"`
}

// Valid reports whether the event parameters are usable.
func (e VolumeEvent) Valid() bool {
	return timeInBounds(e.StartTime) && e.DoseVolume > 0
}

// Schedule is one daily irrigation programme, persisted as a single JSON
// file named after its UID.
type Schedule struct {
	ScheduleName     string            `json:"scheduleName"`
	ScheduleUID      string            `json:"scheduleUID"`
	LightsOnTime     int               `json:"lightsOnTime"`
	LightsOffTime    int               `json:"lightsOffTime"`
	AutopilotWindows []AutopilotWindow `json:"autopilotWindows"`
	DurationEvents   []DurationEvent   `json:"durationEvents"`
	VolumeEvents     []VolumeEvent     `json:"volumeEvents"`
}

// Valid reports whether the schedule carries the identity fields every
// persisted schedule needs.
func (s *Schedule) Valid() bool {
	return s.ScheduleName != "" && s.ScheduleUID != ""
}

// LockLevel is the persistent (non-session) restriction on a schedule.
type LockLevel int

const (
	// Unlocked schedules may be edited and deleted (subject to edit locks).
	Unlocked LockLevel = 0
	// TemplateLocked schedules are referenced by a template and immutable.
	TemplateLocked LockLevel = 1
	// CycleLocked schedules are in use by an active cycle and immutable.
	CycleLocked LockLevel = 2
)

// IndexEntry is one row of the schedule index file.
type IndexEntry struct {
	ScheduleUID string    `json:"scheduleUID"`
	Locked      LockLevel `json:"locked"`
}

// timeInBounds reports whether a minutes-since-midnight value is valid.
func timeInBounds(minutes int) bool {
	return minutes >= 0 && minutes <= minutesPerDayMax
}
