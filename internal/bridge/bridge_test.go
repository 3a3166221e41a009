package bridge

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/fertigate-core/internal/input"
	"github.com/nerrad567/fertigate-core/internal/output"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeBroker struct {
	mu         sync.Mutex
	topics     mqtt.Topics
	published  []published
	subscribed []string
	handler    mqtt.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{topics: mqtt.NewTopics("fertigate")}
}

func (f *fakeBroker) Publish(topic string, payload []byte, _ byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic, append([]byte(nil), payload...), retained})
	return nil
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
	f.handler = handler
	return nil
}

func (f *fakeBroker) Topics() mqtt.Topics { return f.topics }

type fakeDispatcher struct {
	mu        sync.Mutex
	commands  []output.Command
	points    map[string]bool
	queueFull bool
}

func (f *fakeDispatcher) Submit(cmd output.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueFull {
		return false
	}
	f.commands = append(f.commands, cmd)
	return true
}

func (f *fakeDispatcher) Valid(pointID string) bool { return f.points[pointID] }

func newBridgeFixture() (*Bridge, *fakeBroker, *fakeDispatcher) {
	broker := newFakeBroker()
	dispatcher := &fakeDispatcher{points: map[string]bool{"RLY0": true, "RLY1": true}}
	return New(broker, dispatcher, 1, nil), broker, dispatcher
}

func TestBridge_StartSubscribes(t *testing.T) {
	b, broker, _ := newBridgeFixture()

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(broker.subscribed) != 1 || broker.subscribed[0] != "fertigate/output/+/command" {
		t.Errorf("subscribed topics = %v", broker.subscribed)
	}
}

func TestBridge_HandleCommand(t *testing.T) {
	b, broker, dispatcher := newBridgeFixture()
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := broker.handler("fertigate/output/RLY1/command", []byte(`{"kind":"on_timed","durationMs":2000}`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(dispatcher.commands) != 1 {
		t.Fatalf("submitted %d commands, want 1", len(dispatcher.commands))
	}
	cmd := dispatcher.commands[0]
	if cmd.PointID != "RLY1" || cmd.Kind != output.KindOnTimed ||
		cmd.Duration != 2*time.Second || cmd.Origin != "mqtt" {
		t.Errorf("command = %+v", cmd)
	}
}

func TestBridge_HandleCommandRejects(t *testing.T) {
	b, broker, dispatcher := newBridgeFixture()
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr string
	}{
		{"unknown point", "fertigate/output/NOPE/command", `{"kind":"on"}`, "unknown output point"},
		{"bad json", "fertigate/output/RLY0/command", `{kind}`, "parsing command"},
		{"bad kind", "fertigate/output/RLY0/command", `{"kind":"toggle"}`, "unknown output command kind"},
		{"timed without duration", "fertigate/output/RLY0/command", `{"kind":"on_timed"}`, "positive durationMs"},
		{"state topic", "fertigate/output/RLY0/state", `{"kind":"on"}`, "unexpected command topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := broker.handler(tt.topic, []byte(tt.payload))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("handler error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
	if len(dispatcher.commands) != 0 {
		t.Errorf("rejected messages still submitted %d commands", len(dispatcher.commands))
	}
}

func TestBridge_HandleCommandQueueFull(t *testing.T) {
	b, broker, dispatcher := newBridgeFixture()
	dispatcher.queueFull = true
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := broker.handler("fertigate/output/RLY0/command", []byte(`{"kind":"on"}`))
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Errorf("handler error = %v, want queue full", err)
	}
}

func TestBridge_OutputListener(t *testing.T) {
	b, broker, _ := newBridgeFixture()

	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	b.OutputListener()(output.Event{PointID: "RLY0", On: true, Origin: "api", At: at})

	if len(broker.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(broker.published))
	}
	p := broker.published[0]
	if p.topic != "fertigate/output/RLY0/state" || !p.retained {
		t.Errorf("published to %q retained=%v", p.topic, p.retained)
	}

	var msg stateMessage
	if err := json.Unmarshal(p.payload, &msg); err != nil {
		t.Fatalf("unmarshalling payload: %v", err)
	}
	if !msg.On || msg.Origin != "api" || !msg.At.Equal(at) {
		t.Errorf("payload = %+v", msg)
	}
}

func TestBridge_SampleListener(t *testing.T) {
	b, broker, _ := newBridgeFixture()

	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	b.SampleListener()(input.Snapshot{
		Digital: []input.DigitalState{
			{PointID: "DI1", High: true, At: at},
			{PointID: "DI2"}, // unsampled, skipped
		},
		Analog: []input.AnalogValue{{PointID: "AI1", Raw: 512, At: at}},
	})

	if len(broker.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(broker.published))
	}
	if broker.published[0].topic != "fertigate/input/DI1/state" {
		t.Errorf("first topic = %q", broker.published[0].topic)
	}
	if broker.published[1].topic != "fertigate/input/AI1/state" {
		t.Errorf("second topic = %q", broker.published[1].topic)
	}
	for _, p := range broker.published {
		if !p.retained {
			t.Errorf("%s not retained", p.topic)
		}
	}
}
