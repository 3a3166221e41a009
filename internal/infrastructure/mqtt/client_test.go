package mqtt

import (
	"strings"
	"testing"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := NewTopics("")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"OutputState", topics.OutputState("RLY3"), "fertigate/output/RLY3/state"},
		{"OutputCommand", topics.OutputCommand("RLY3"), "fertigate/output/RLY3/command"},
		{"AllOutputCommands", topics.AllOutputCommands(), "fertigate/output/+/command"},
		{"InputState", topics.InputState("AI1"), "fertigate/input/AI1/state"},
		{"SystemStatus", topics.SystemStatus(), "fertigate/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	custom := NewTopics("greenhouse-7")
	if got := custom.OutputState("RLY0"); got != "greenhouse-7/output/RLY0/state" {
		t.Errorf("custom prefix OutputState = %q", got)
	}
}

func TestTopics_CommandPointID(t *testing.T) {
	topics := NewTopics("fertigate")

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"fertigate/output/RLY3/command", "RLY3", true},
		{"fertigate/output/AI1/command", "AI1", true},
		{"fertigate/output/RLY3/state", "", false},
		{"fertigate/input/AI1/state", "", false},
		{"other/output/RLY3/command", "", false},
		{"fertigate/output//command", "", false},
		{"fertigate/output/a/b/command", "", false},
	}
	for _, tt := range tests {
		id, ok := topics.CommandPointID(tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("CommandPointID(%q) = (%q, %v), want (%q, %v)",
				tt.topic, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     8883,
			TLS:      true,
			ClientID: "fertigate-test",
		},
		Auth: config.MQTTAuthConfig{Username: "grower", Password: "secret"},
		QoS:  1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     30,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("broker URL = %v, want ssl://broker.local:8883", opts.Servers)
	}
	if opts.ClientID != "fertigate-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "grower" {
		t.Errorf("Username = %q", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect disabled")
	}
	if opts.TLSConfig == nil {
		t.Error("TLS enabled but no TLS config set")
	}

	cfg.Broker.TLS = false
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("scheme without TLS = %q, want tcp", opts.Servers[0].Scheme)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("fertigate-core")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, "fertigate-core") {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("fertigate-core")
	if !strings.Contains(offline, `"status":"offline"`) ||
		!strings.Contains(offline, "graceful_shutdown") {
		t.Errorf("offline payload = %s", offline)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}
