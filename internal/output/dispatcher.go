package output

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/fertigate-core/internal/hardware"
)

// queueDepth bounds the command queue. Submitters get an immediate
// false when the worker has fallen this far behind.
const queueDepth = 10

// timerRetryDelay spaces out re-submission attempts when a timer fires
// while the queue is full.
const timerRetryDelay = 50 * time.Millisecond

// Logger is the minimal logging surface the dispatcher needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher serializes all relay writes through one worker goroutine.
// Commands enter through Submit onto a bounded FIFO queue; the worker
// is the only writer of physical output state, which gives total
// ordering of transitions per channel.
//
// Timed commands arm one countdown per channel. Arming always cancels
// the previous countdown for that channel first, so a stale timer can
// never switch off an output that a later command re-activated.
type Dispatcher struct {
	driver   hardware.Driver
	queue    chan Command
	channels map[string]int
	order    []string
	logger   Logger
	now      func() time.Time

	mu     sync.RWMutex
	states map[string]*PointState

	// timers is touched only by the worker goroutine.
	timers map[string]*time.Timer

	listeners []Listener
}

// NewDispatcher builds a dispatcher over the board's relay bank.
//
// Parameters:
//   - driver: hardware driver, already constructed but not necessarily
//     connected
//   - board: validated board description supplying the point id map
//   - logger: may be nil
func NewDispatcher(driver hardware.Driver, board *hardware.BoardConfig, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}

	ids := board.RelayPointIDs()
	channels := make(map[string]int, len(ids))
	states := make(map[string]*PointState, len(ids))
	now := time.Now()
	for ch, id := range ids {
		channels[id] = ch
		states[id] = &PointState{PointID: id, Channel: ch, ChangedAt: now}
	}

	return &Dispatcher{
		driver:   driver,
		queue:    make(chan Command, queueDepth),
		channels: channels,
		order:    ids,
		logger:   logger,
		now:      time.Now,
		states:   states,
		timers:   make(map[string]*time.Timer),
	}
}

// AddListener registers a transition listener. Must be called before
// Run; listeners are invoked on the worker goroutine and must not
// block.
func (d *Dispatcher) AddListener(fn Listener) {
	d.listeners = append(d.listeners, fn)
}

// Valid reports whether the board exposes the given output point.
func (d *Dispatcher) Valid(pointID string) bool {
	_, ok := d.channels[pointID]
	return ok
}

// Submit enqueues a command without blocking.
//
// Returns:
//   - true when the command was accepted
//   - false when the queue is full; the caller decides how to signal
//     the backpressure
func (d *Dispatcher) Submit(cmd Command) bool {
	select {
	case d.queue <- cmd:
		return true
	default:
		return false
	}
}

// Run drains the queue until the context is cancelled, then stops all
// outstanding timers and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("output dispatcher started", "points", len(d.order), "queue_depth", queueDepth)
	for {
		select {
		case <-ctx.Done():
			for id, t := range d.timers {
				t.Stop()
				delete(d.timers, id)
			}
			d.logger.Info("output dispatcher stopped")
			return ctx.Err()
		case cmd := <-d.queue:
			d.apply(cmd)
		}
	}
}

// apply executes one command on the worker goroutine.
func (d *Dispatcher) apply(cmd Command) {
	channel, ok := d.channels[cmd.PointID]
	if !ok {
		d.logger.Warn("dropping command for unknown output point",
			"point_id", cmd.PointID, "kind", string(cmd.Kind), "origin", cmd.Origin)
		return
	}

	// Any command for a channel supersedes its armed countdown.
	if t, armed := d.timers[cmd.PointID]; armed {
		t.Stop()
		delete(d.timers, cmd.PointID)
	}

	var on bool
	var timedUntil time.Time
	switch cmd.Kind {
	case KindOn:
		on = true
	case KindOff:
		on = false
	case KindOnTimed:
		on = true
		timedUntil = d.now().Add(cmd.Duration)
	default:
		d.logger.Warn("dropping command with unknown kind",
			"point_id", cmd.PointID, "kind", string(cmd.Kind))
		return
	}

	if err := d.driver.SetRelay(channel, on); err != nil {
		d.logger.Error("relay write failed",
			"point_id", cmd.PointID, "channel", channel, "on", on, "error", err)
		return
	}

	at := d.now()
	d.mu.Lock()
	st := d.states[cmd.PointID]
	st.On = on
	st.ChangedAt = at
	st.TimedUntil = timedUntil
	d.mu.Unlock()

	if cmd.Kind == KindOnTimed {
		pointID := cmd.PointID
		d.timers[pointID] = time.AfterFunc(cmd.Duration, func() {
			d.submitTimerOff(pointID)
		})
	}

	d.logger.Info("output state changed",
		"point_id", cmd.PointID, "on", on, "kind", string(cmd.Kind), "origin", cmd.Origin)

	ev := Event{PointID: cmd.PointID, On: on, Origin: cmd.Origin, At: at}
	for _, fn := range d.listeners {
		fn(ev)
	}
}

// submitTimerOff feeds the synthesized off command back through the
// queue so it is totally ordered against any command submitted while
// the countdown ran. A full queue retries shortly rather than dropping
// the off, since a dropped off leaves a relay latched on.
func (d *Dispatcher) submitTimerOff(pointID string) {
	cmd := Command{PointID: pointID, Kind: KindOff, Origin: "timer"}
	if d.Submit(cmd) {
		return
	}
	d.logger.Warn("queue full for timer expiry, retrying", "point_id", pointID)
	time.AfterFunc(timerRetryDelay, func() { d.submitTimerOff(pointID) })
}

// State returns the tracked state of one point.
func (d *Dispatcher) State(pointID string) (PointState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.states[pointID]
	if !ok {
		return PointState{}, false
	}
	return *st, true
}

// Snapshot returns the state of every output point in channel order.
func (d *Dispatcher) Snapshot() []PointState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]PointState, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, *d.states[id])
	}
	return out
}
