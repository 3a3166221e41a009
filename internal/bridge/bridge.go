// Package bridge links the controller's IO to the MQTT broker: output
// transitions and input readings go out as retained state, and command
// messages come in and are fed to the output dispatcher.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/fertigate-core/internal/input"
	"github.com/nerrad567/fertigate-core/internal/output"
)

// Logger is the minimal logging surface the bridge needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Broker is the slice of the MQTT client the bridge uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
}

// Submitter is the slice of the output dispatcher the bridge uses.
type Submitter interface {
	Submit(cmd output.Command) bool
	Valid(pointID string) bool
}

// commandMessage is the wire shape of an output command.
type commandMessage struct {
	Kind       string `json:"kind"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// stateMessage is the wire shape of a published output state.
type stateMessage struct {
	PointID string    `json:"pointId"`
	On      bool      `json:"on"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Bridge shuttles messages between the broker and the IO layers.
type Bridge struct {
	broker     Broker
	dispatcher Submitter
	logger     Logger
	qos        byte
}

// New builds a bridge.
//
// Parameters:
//   - broker: connected MQTT client
//   - dispatcher: output dispatcher accepting commands
//   - qos: QoS for published state
//   - logger: may be nil
func New(broker Broker, dispatcher Submitter, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{broker: broker, dispatcher: dispatcher, logger: logger, qos: qos}
}

// Start subscribes to the output command topics. Output and input
// listeners are registered separately via OutputListener and
// SampleListener before the dispatcher and sampler start.
func (b *Bridge) Start() error {
	pattern := b.broker.Topics().AllOutputCommands()
	if err := b.broker.Subscribe(pattern, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to output commands: %w", err)
	}
	b.logger.Info("mqtt bridge started", "command_pattern", pattern)
	return nil
}

// handleCommand parses one inbound command message and submits it.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	pointID, ok := b.broker.Topics().CommandPointID(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}
	if !b.dispatcher.Valid(pointID) {
		return fmt.Errorf("unknown output point %q", pointID)
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing command for %s: %w", pointID, err)
	}
	kind, err := output.ParseKind(msg.Kind)
	if err != nil {
		return fmt.Errorf("command for %s: %w", pointID, err)
	}
	if kind == output.KindOnTimed && msg.DurationMs <= 0 {
		return fmt.Errorf("timed command for %s needs a positive durationMs", pointID)
	}

	cmd := output.Command{
		PointID:  pointID,
		Kind:     kind,
		Duration: time.Duration(msg.DurationMs) * time.Millisecond,
		Origin:   "mqtt",
	}
	if !b.dispatcher.Submit(cmd) {
		return fmt.Errorf("output queue full, dropping %s for %s", msg.Kind, pointID)
	}
	return nil
}

// OutputListener returns a dispatcher listener that publishes every
// applied transition as retained state.
func (b *Bridge) OutputListener() output.Listener {
	return func(ev output.Event) {
		payload, err := json.Marshal(stateMessage{
			PointID: ev.PointID, On: ev.On, Origin: ev.Origin, At: ev.At,
		})
		if err != nil {
			return
		}
		topic := b.broker.Topics().OutputState(ev.PointID)
		if err := b.broker.Publish(topic, payload, b.qos, true); err != nil {
			b.logger.Warn("publishing output state failed", "point_id", ev.PointID, "error", err)
		}
	}
}

// SampleListener returns a sampler listener that publishes cached
// readings as retained state, one message per point.
func (b *Bridge) SampleListener() input.Listener {
	return func(snap input.Snapshot) {
		topics := b.broker.Topics()
		for _, d := range snap.Digital {
			if d.At.IsZero() {
				continue
			}
			payload, err := json.Marshal(d)
			if err != nil {
				continue
			}
			if err := b.broker.Publish(topics.InputState(d.PointID), payload, b.qos, true); err != nil {
				b.logger.Warn("publishing input state failed", "point_id", d.PointID, "error", err)
			}
		}
		for _, a := range snap.Analog {
			if a.At.IsZero() {
				continue
			}
			payload, err := json.Marshal(a)
			if err != nil {
				continue
			}
			if err := b.broker.Publish(topics.InputState(a.PointID), payload, b.qos, true); err != nil {
				b.logger.Warn("publishing input state failed", "point_id", a.PointID, "error", err)
			}
		}
	}
}
