package schedule

import (
	"errors"
	"sort"
	"testing"
)

func window(start, end int) AutopilotWindow {
	return AutopilotWindow{
		StartTime:    start,
		EndTime:      end,
		SettlingTime: 10,
	}
}

func TestAddAutopilotWindow_Overlaps(t *testing.T) {
	tests := []struct {
		name    string
		first   AutopilotWindow
		second  AutopilotWindow
		wantErr error
	}{
		{
			name:    "partial overlap rejected",
			first:   window(60, 120),
			second:  window(100, 160),
			wantErr: ErrOverlap,
		},
		{
			name:    "touching windows accepted",
			first:   window(60, 120),
			second:  window(120, 180),
			wantErr: nil,
		},
		{
			name:    "equal start rejected",
			first:   window(60, 120),
			second:  window(60, 90),
			wantErr: ErrOverlap,
		},
		{
			name:    "equal end rejected",
			first:   window(60, 120),
			second:  window(30, 120),
			wantErr: ErrOverlap,
		},
		{
			name:    "envelopment rejected",
			first:   window(60, 120),
			second:  window(30, 180),
			wantErr: ErrOverlap,
		},
		{
			name:    "contained window rejected",
			first:   window(60, 120),
			second:  window(70, 110),
			wantErr: ErrOverlap,
		},
		{
			name:    "disjoint windows accepted",
			first:   window(60, 120),
			second:  window(300, 360),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}
			if err := AddAutopilotWindow(s, tt.first); err != nil {
				t.Fatalf("adding first window: %v", err)
			}

			err := AddAutopilotWindow(s, tt.second)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("AddAutopilotWindow() error = %v, want nil", err)
				}
				if len(s.AutopilotWindows) != 2 {
					t.Errorf("window count = %d, want 2", len(s.AutopilotWindows))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddAutopilotWindow() error = %v, want %v", err, tt.wantErr)
			}
			if len(s.AutopilotWindows) != 1 {
				t.Errorf("schedule mutated on failed add: %d windows", len(s.AutopilotWindows))
			}
		})
	}
}

func TestAddAutopilotWindow_Bounds(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	bad := []AutopilotWindow{
		window(-1, 60),
		window(60, 1440),
		window(120, 60),  // start after end
		window(100, 100), // zero width
		{StartTime: 60, EndTime: 120}, // no dosing params, no settling time
	}
	for _, w := range bad {
		if err := AddAutopilotWindow(s, w); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("AddAutopilotWindow(%+v) error = %v, want ErrInvalidEvent", w, err)
		}
	}
}

func TestAddDurationEvents_Overlaps(t *testing.T) {
	base := DurationEvent{StartTime: 100, Duration: 600} // ends 110

	tests := []struct {
		name    string
		event   DurationEvent
		wantErr error
	}{
		{name: "equal start", event: DurationEvent{StartTime: 100, Duration: 60}, wantErr: ErrOverlap},
		{name: "starts inside", event: DurationEvent{StartTime: 105, Duration: 60}, wantErr: ErrOverlap},
		{name: "ends inside", event: DurationEvent{StartTime: 95, Duration: 600}, wantErr: ErrOverlap},
		{name: "envelops", event: DurationEvent{StartTime: 95, Duration: 1200}, wantErr: ErrOverlap},
		{name: "starts at end minute", event: DurationEvent{StartTime: 110, Duration: 60}, wantErr: nil},
		{name: "disjoint", event: DurationEvent{StartTime: 500, Duration: 60}, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}
			if err := AddDurationEvents(s, []DurationEvent{base}); err != nil {
				t.Fatalf("adding base event: %v", err)
			}

			err := AddDurationEvents(s, []DurationEvent{tt.event})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("AddDurationEvents() error = %v, want nil", err)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AddDurationEvents() error = %v, want %v", err, tt.wantErr)
				}
				if len(s.DurationEvents) != 1 {
					t.Errorf("schedule mutated on failed add: %d events", len(s.DurationEvents))
				}
			}
		})
	}
}

func TestAddDurationEvents_ComputesEndTime(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	// 90 seconds rounds up to 2 minutes.
	if err := AddDurationEvents(s, []DurationEvent{{StartTime: 100, Duration: 90}}); err != nil {
		t.Fatalf("AddDurationEvents() error = %v", err)
	}
	if got := s.DurationEvents[0].EndTime; got != 102 {
		t.Errorf("EndTime = %d, want 102", got)
	}

	// End clamps to the last minute of the day.
	if err := AddDurationEvents(s, []DurationEvent{{StartTime: 1438, Duration: 600}}); err != nil {
		t.Fatalf("AddDurationEvents() error = %v", err)
	}
	if got := s.DurationEvents[len(s.DurationEvents)-1].EndTime; got != 1439 {
		t.Errorf("clamped EndTime = %d, want 1439", got)
	}
}

func TestAddVolumeEvents_Overlaps(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	if err := AddDurationEvents(s, []DurationEvent{{StartTime: 100, Duration: 600}}); err != nil {
		t.Fatalf("adding duration event: %v", err)
	}
	if err := AddVolumeEvents(s, []VolumeEvent{{StartTime: 200, DoseVolume: 1.5}}); err != nil {
		t.Fatalf("adding volume event: %v", err)
	}

	// Same instant as an existing volume event.
	err := AddVolumeEvents(s, []VolumeEvent{{StartTime: 200, DoseVolume: 2}})
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("duplicate instant error = %v, want ErrOverlap", err)
	}

	// Strictly inside the duration span (100,110).
	err = AddVolumeEvents(s, []VolumeEvent{{StartTime: 105, DoseVolume: 2}})
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("inside-span error = %v, want ErrOverlap", err)
	}

	// On the duration start minute: equal starts collide symmetrically.
	err = AddDurationEvents(s, []DurationEvent{{StartTime: 200, Duration: 60}})
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("duration on volume instant error = %v, want ErrOverlap", err)
	}

	// At the end minute of the span: allowed (half-open interval).
	if err := AddVolumeEvents(s, []VolumeEvent{{StartTime: 110, DoseVolume: 2}}); err != nil {
		t.Errorf("volume at span end error = %v, want nil", err)
	}
}

func TestEventLimit(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	// Fill to 99 with duration events two minutes apart.
	events := make([]DurationEvent, 99)
	for i := range events {
		events[i] = DurationEvent{StartTime: i * 2, Duration: 30}
	}
	if err := AddDurationEvents(s, events); err != nil {
		t.Fatalf("filling schedule: %v", err)
	}

	// The 100th combined event succeeds.
	if err := AddVolumeEvents(s, []VolumeEvent{{StartTime: 300, DoseVolume: 1}}); err != nil {
		t.Fatalf("100th event error = %v, want nil", err)
	}

	// The 101st fails.
	err := AddVolumeEvents(s, []VolumeEvent{{StartTime: 400, DoseVolume: 1}})
	if !errors.Is(err, ErrEventLimit) {
		t.Errorf("101st event error = %v, want ErrEventLimit", err)
	}
	err = AddDurationEvents(s, []DurationEvent{{StartTime: 500, Duration: 30}})
	if !errors.Is(err, ErrEventLimit) {
		t.Errorf("101st duration event error = %v, want ErrEventLimit", err)
	}
}

func TestEventsKeptSorted(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	for _, start := range []int{600, 60, 300} {
		if err := AddAutopilotWindow(s, window(start, start+30)); err != nil {
			t.Fatalf("AddAutopilotWindow(%d) error = %v", start, err)
		}
	}
	if !sort.SliceIsSorted(s.AutopilotWindows, func(i, j int) bool {
		return s.AutopilotWindows[i].StartTime < s.AutopilotWindows[j].StartTime
	}) {
		t.Error("autopilot windows not sorted by start time")
	}

	if err := AddDurationEvents(s, []DurationEvent{
		{StartTime: 900, Duration: 30},
		{StartTime: 700, Duration: 30},
	}); err != nil {
		t.Fatalf("AddDurationEvents() error = %v", err)
	}
	if !sort.SliceIsSorted(s.DurationEvents, func(i, j int) bool {
		return s.DurationEvents[i].StartTime < s.DurationEvents[j].StartTime
	}) {
		t.Error("duration events not sorted by start time")
	}
}

func TestAddDurationEvents_BatchAtomic(t *testing.T) {
	s := &Schedule{ScheduleName: "t", ScheduleUID: "t_1"}

	// Second event in the batch collides with the first: nothing lands.
	err := AddDurationEvents(s, []DurationEvent{
		{StartTime: 100, Duration: 600},
		{StartTime: 105, Duration: 60},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("AddDurationEvents() error = %v, want ErrOverlap", err)
	}
	if len(s.DurationEvents) != 0 {
		t.Errorf("failed batch left %d events behind", len(s.DurationEvents))
	}
}
