package schedule

import (
	"fmt"
	"sort"
)

// AddAutopilotWindow validates a window against the schedule and appends
// it, keeping the window list sorted by start time. The schedule is
// unchanged on failure.
func AddAutopilotWindow(s *Schedule, w AutopilotWindow) error {
	if !w.Valid() {
		return fmt.Errorf("autopilot window [%d,%d): %w", w.StartTime, w.EndTime, ErrInvalidEvent)
	}
	if autopilotOverlaps(s, w) {
		return fmt.Errorf("autopilot window [%d,%d): %w", w.StartTime, w.EndTime, ErrOverlap)
	}

	s.AutopilotWindows = append(s.AutopilotWindows, w)
	sort.SliceStable(s.AutopilotWindows, func(i, j int) bool {
		return s.AutopilotWindows[i].StartTime < s.AutopilotWindows[j].StartTime
	})
	return nil
}

// AddDurationEvents validates a batch of duration events and appends them
// all, or none. End times are derived before validation.
func AddDurationEvents(s *Schedule, events []DurationEvent) error {
	if !withinEventLimit(s, len(events)) {
		return ErrEventLimit
	}

	// Validate the whole batch before mutating anything. Each event is
	// checked against the schedule as it stands, matching one-at-a-time
	// submission through the API.
	staged := *s
	staged.DurationEvents = append([]DurationEvent(nil), s.DurationEvents...)
	for i := range events {
		e := events[i]
		e.ComputeEndTime()
		if !e.Valid() || !timeInBounds(e.EndTime) {
			return fmt.Errorf("duration event at %d: %w", e.StartTime, ErrInvalidEvent)
		}
		if durationOverlaps(&staged, e) {
			return fmt.Errorf("duration event at %d: %w", e.StartTime, ErrOverlap)
		}
		// A duration event may not start on a volume event's instant.
		if volumeOverlaps(&staged, VolumeEvent{StartTime: e.StartTime}) {
			return fmt.Errorf("duration event at %d: %w", e.StartTime, ErrOverlap)
		}
		staged.DurationEvents = append(staged.DurationEvents, e)
	}

	s.DurationEvents = staged.DurationEvents
	sort.SliceStable(s.DurationEvents, func(i, j int) bool {
		return s.DurationEvents[i].StartTime < s.DurationEvents[j].StartTime
	})
	return nil
}

// AddVolumeEvents validates a batch of volume events and appends them
// all, or none.
func AddVolumeEvents(s *Schedule, events []VolumeEvent) error {
	if !withinEventLimit(s, len(events)) {
		return ErrEventLimit
	}

	staged := *s
	staged.VolumeEvents = append([]VolumeEvent(nil), s.VolumeEvents...)
	for _, e := range events {
		if !e.Valid() {
			return fmt.Errorf("volume event at %d: %w", e.StartTime, ErrInvalidEvent)
		}
		if volumeOverlaps(&staged, e) {
			return fmt.Errorf("volume event at %d: %w", e.StartTime, ErrOverlap)
		}
		// A volume event may not start inside a duration event's span.
		// Modelled as a zero-width duration event at its start.
		probe := DurationEvent{StartTime: e.StartTime, Duration: 0, EndTime: e.StartTime}
		if durationOverlaps(&staged, probe) {
			return fmt.Errorf("volume event at %d: %w", e.StartTime, ErrOverlap)
		}
		staged.VolumeEvents = append(staged.VolumeEvents, e)
	}

	s.VolumeEvents = staged.VolumeEvents
	sort.SliceStable(s.VolumeEvents, func(i, j int) bool {
		return s.VolumeEvents[i].StartTime < s.VolumeEvents[j].StartTime
	})
	return nil
}

// withinEventLimit reports whether adding n more events keeps the
// combined duration+volume count at or under the cap.
func withinEventLimit(s *Schedule, n int) bool {
	return len(s.DurationEvents)+len(s.VolumeEvents)+n <= maxDurationVolumeEvents
}

// autopilotOverlaps reports whether a new window collides with an
// existing one. Windows collide on equal start, equal end, envelopment,
// or either endpoint falling strictly inside an existing span. Touching
// windows ([60,120) then [120,180)) do not collide.
func autopilotOverlaps(s *Schedule, w AutopilotWindow) bool {
	for _, existing := range s.AutopilotWindows {
		if w.StartTime == existing.StartTime {
			return true
		}
		if w.EndTime == existing.EndTime {
			return true
		}
		if w.StartTime < existing.StartTime && w.EndTime > existing.EndTime {
			return true
		}
		if w.StartTime > existing.StartTime && w.StartTime < existing.EndTime {
			return true
		}
		if w.EndTime > existing.StartTime && w.EndTime < existing.EndTime {
			return true
		}
	}
	return false
}

// durationOverlaps reports whether a new duration event collides with an
// existing one: equal starts, start inside an existing span, or (for a
// real duration) end inside an existing span or enveloping it. A
// zero-duration probe only triggers the start checks, which is how volume
// instants are tested against duration spans.
func durationOverlaps(s *Schedule, e DurationEvent) bool {
	for _, existing := range s.DurationEvents {
		if e.StartTime == existing.StartTime {
			return true
		}
		if e.StartTime > existing.StartTime && e.StartTime < existing.EndTime {
			return true
		}
		if e.Duration > 0 && e.EndTime > existing.StartTime && e.EndTime < existing.EndTime {
			return true
		}
		if e.Duration > 0 && e.StartTime < existing.StartTime && e.EndTime > existing.EndTime {
			return true
		}
	}
	return false
}

// volumeOverlaps reports whether a new volume event collides with an
// existing volume event (exact start equality) or starts strictly inside
// a duration event's span.
func volumeOverlaps(s *Schedule, e VolumeEvent) bool {
	for _, existing := range s.VolumeEvents {
		if e.StartTime == existing.StartTime {
			return true
		}
	}
	for _, existing := range s.DurationEvents {
		if e.StartTime > existing.StartTime && e.StartTime < existing.EndTime {
			return true
		}
	}
	return false
}
