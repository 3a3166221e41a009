// Package schedule implements the daily irrigation schedule store and its
// event validation rules.
//
// A schedule carries three ordered event collections:
//
//   - autopilot windows: sensor-driven dosing windows with a span
//   - duration events: run an output for a fixed number of seconds
//   - volume events: dose a fixed volume at an instant
//
// All times are integer minutes since midnight in [0,1439]. Events of
// comparable kinds may not overlap; the exact collision rules live in
// validation.go and every mutation keeps the collections sorted by start
// time. The combined duration+volume event count per schedule is capped
// at 100.
//
// Schedules persist as one JSON file per schedule plus a single index
// file recording each UID and its persistent lock level (unlocked,
// template-locked, cycle-locked). The index reconciles against the
// directory at startup and via Reconcile.
package schedule
