package output

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for output operations.
var (
	// ErrUnknownPoint is returned when a command names a point id the
	// board does not expose.
	ErrUnknownPoint = errors.New("unknown output point")

	// ErrQueueFull is returned when the command queue cannot accept
	// another command.
	ErrQueueFull = errors.New("output command queue full")
)

// Kind is the command verb applied to one output channel.
type Kind string

const (
	// KindOn latches the output on until a later command changes it.
	KindOn Kind = "on"

	// KindOff latches the output off and cancels any armed timer.
	KindOff Kind = "off"

	// KindOnTimed turns the output on and arms a countdown that
	// synthesizes an off command when it fires.
	KindOnTimed Kind = "on_timed"
)

// ParseKind maps a wire verb onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOn, KindOff, KindOnTimed:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown output command kind %q", s)
	}
}

// Command is one queued output mutation. Commands are transient; they
// exist only on the dispatch queue and are never persisted.
type Command struct {
	PointID  string
	Kind     Kind
	Duration time.Duration // KindOnTimed only
	Origin   string        // "api", "mqtt", "timer"
}

// PointState is the dispatcher's view of one output channel.
type PointState struct {
	PointID    string    `json:"pointId"`
	Channel    int       `json:"channel"`
	On         bool      `json:"on"`
	ChangedAt  time.Time `json:"changedAt"`
	TimedUntil time.Time `json:"timedUntil,omitzero"`
}

// Event describes one applied state transition, delivered to listeners
// from the dispatch worker after the hardware write succeeds.
type Event struct {
	PointID string    `json:"pointId"`
	On      bool      `json:"on"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Listener receives applied transitions. Listeners run on the dispatch
// worker and must not block.
type Listener func(Event)
