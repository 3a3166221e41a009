package mqtt

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/config"
)

// integrationConfig builds broker settings from the environment. Tests
// skip unless FERTIGATE_MQTT_TEST_BROKER names a reachable broker host.
func integrationConfig(t *testing.T) config.MQTTConfig {
	t.Helper()
	host := os.Getenv("FERTIGATE_MQTT_TEST_BROKER")
	if host == "" {
		t.Skip("FERTIGATE_MQTT_TEST_BROKER not set")
	}
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     host,
			Port:     1883,
			ClientID: "fertigate-test-" + t.Name(),
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "fertigate-test",
	}
}

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	cfg := integrationConfig(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck

	topic := client.Topics().OutputCommand("RLY1")
	var mu sync.Mutex
	var received []byte
	err = client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		mu.Lock()
		received = append([]byte(nil), payload...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := []byte(`{"kind":"on_timed","durationMs":2000}`)
	if err := client.Publish(topic, want, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := received
		mu.Unlock()
		if got != nil {
			if string(got) != string(want) {
				t.Errorf("round trip payload = %s, want %s", got, want)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("message never arrived")
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := integrationConfig(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck

	topic := client.Topics().AllOutputCommands()
	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) {
		t.Error("subscription not tracked")
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topic) {
		t.Error("subscription still tracked after unsubscribe")
	}
}
