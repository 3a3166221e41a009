package history

import (
	"context"
	"time"

	"github.com/nerrad567/fertigate-core/internal/input"
)

// Logger is the minimal logging surface the recorder needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Recorder throttles the sampler's poll stream down to one persisted
// batch per interval. The sampler polls every second; storing each poll
// would wear out flash for no analytical gain.
type Recorder struct {
	store    *Store
	interval time.Duration
	logger   Logger
	queue    chan input.Snapshot
	now      func() time.Time

	lastWrite time.Time
}

// NewRecorder builds a recorder that persists at most one snapshot per
// interval.
func NewRecorder(store *Store, interval time.Duration, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		store:    store,
		interval: interval,
		logger:   logger,
		queue:    make(chan input.Snapshot, 4),
		now:      time.Now,
	}
}

// Observe is the sampler listener. It never blocks; a full queue drops
// the snapshot since the next poll replaces it anyway.
func (r *Recorder) Observe(snap input.Snapshot) {
	select {
	case r.queue <- snap:
	default:
	}
}

// Run persists throttled snapshots until the context is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-r.queue:
			if r.now().Sub(r.lastWrite) < r.interval {
				continue
			}
			if err := r.store.Insert(ctx, flatten(snap)); err != nil {
				r.logger.Warn("persisting input samples failed", "error", err)
				continue
			}
			r.lastWrite = r.now()
		}
	}
}

// flatten converts one cached snapshot into sample rows.
func flatten(snap input.Snapshot) []Sample {
	samples := make([]Sample, 0, len(snap.Digital)+len(snap.Analog))
	for _, d := range snap.Digital {
		if d.At.IsZero() {
			continue
		}
		v := 0.0
		if d.High {
			v = 1.0
		}
		samples = append(samples, Sample{PointID: d.PointID, Kind: KindDigital, Value: v, SampledAt: d.At})
	}
	for _, a := range snap.Analog {
		if a.At.IsZero() {
			continue
		}
		samples = append(samples, Sample{PointID: a.PointID, Kind: KindAnalog, Value: float64(a.Raw), SampledAt: a.At})
	}
	return samples
}
