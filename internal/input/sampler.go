package input

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/fertigate-core/internal/hardware"
)

// Logger is the minimal logging surface the sampler needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// DigitalState is the last sampled level of one digital input point.
type DigitalState struct {
	PointID string    `json:"pointId"`
	High    bool      `json:"high"`
	At      time.Time `json:"at"`
}

// AnalogValue is the last sampled raw converter value of one analog
// input point.
type AnalogValue struct {
	PointID string    `json:"pointId"`
	Raw     int       `json:"raw"`
	At      time.Time `json:"at"`
}

// Snapshot is the full cached input state.
type Snapshot struct {
	Digital []DigitalState `json:"digital"`
	Analog  []AnalogValue  `json:"analog"`
}

// Listener receives one full sample batch per poll. Listeners run on
// the sampler goroutine and must not block.
type Listener func(Snapshot)

// Sampler polls every input channel on a fixed interval and caches the
// results. Request handlers read the cache instead of touching the
// hardware, so a slow or wedged bus never stalls the API.
type Sampler struct {
	driver   hardware.Driver
	interval time.Duration
	logger   Logger
	now      func() time.Time

	digitalIDs []string
	analogIDs  []string

	mu      sync.RWMutex
	digital []DigitalState
	analog  []AnalogValue

	listeners []Listener
}

// NewSampler builds a sampler over the board's input banks.
//
// Parameters:
//   - driver: hardware driver shared with the output dispatcher
//   - board: validated board description supplying the point id map
//   - interval: poll period
//   - logger: may be nil
func NewSampler(driver hardware.Driver, board *hardware.BoardConfig, interval time.Duration, logger Logger) *Sampler {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Sampler{
		driver:     driver,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		digitalIDs: board.DigitalInputPointIDs(),
		analogIDs:  board.AnalogInputPointIDs(),
	}
	s.digital = make([]DigitalState, len(s.digitalIDs))
	for i, id := range s.digitalIDs {
		s.digital[i] = DigitalState{PointID: id}
	}
	s.analog = make([]AnalogValue, len(s.analogIDs))
	for i, id := range s.analogIDs {
		s.analog[i] = AnalogValue{PointID: id}
	}
	return s
}

// AddListener registers a per-poll listener. Must be called before Run.
func (s *Sampler) AddListener(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Run polls until the context is cancelled. One poll happens
// immediately so the cache is warm before the first tick.
func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info("input sampler started",
		"digital_points", len(s.digitalIDs), "analog_points", len(s.analogIDs),
		"interval", s.interval.String())

	s.poll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("input sampler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.poll()
		}
	}
}

// poll samples every channel once. A failed read keeps the previous
// cached value for that point.
func (s *Sampler) poll() {
	at := s.now()

	digital := make([]DigitalState, len(s.digitalIDs))
	copy(digital, s.currentDigital())
	for ch, id := range s.digitalIDs {
		high, err := s.driver.DigitalRead(ch)
		if err != nil {
			s.logger.Warn("digital read failed", "point_id", id, "error", err)
			continue
		}
		digital[ch] = DigitalState{PointID: id, High: high, At: at}
	}

	analog := make([]AnalogValue, len(s.analogIDs))
	copy(analog, s.currentAnalog())
	for ch, id := range s.analogIDs {
		raw, err := s.driver.AnalogRead(ch)
		if err != nil {
			s.logger.Warn("analog read failed", "point_id", id, "error", err)
			continue
		}
		analog[ch] = AnalogValue{PointID: id, Raw: raw, At: at}
	}

	s.mu.Lock()
	s.digital = digital
	s.analog = analog
	s.mu.Unlock()

	if len(s.listeners) > 0 {
		snap := Snapshot{Digital: digital, Analog: analog}
		for _, fn := range s.listeners {
			fn(snap)
		}
	}
}

func (s *Sampler) currentDigital() []DigitalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.digital
}

func (s *Sampler) currentAnalog() []AnalogValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analog
}

// Current returns a copy of the cached input state.
func (s *Sampler) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digital := make([]DigitalState, len(s.digital))
	copy(digital, s.digital)
	analog := make([]AnalogValue, len(s.analog))
	copy(analog, s.analog)
	return Snapshot{Digital: digital, Analog: analog}
}
