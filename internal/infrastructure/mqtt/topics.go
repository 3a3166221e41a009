package mqtt

import "fmt"

// DefaultTopicPrefix is used when the config leaves topic_prefix empty.
const DefaultTopicPrefix = "fertigate"

// Topics builds the controller's MQTT topic names. The flat scheme is
// {prefix}/{category}/{point_or_system}/{verb}:
//
//	fertigate/output/RLY3/state    retained output state
//	fertigate/output/RLY3/command  inbound output commands
//	fertigate/input/AI1/state      retained input readings
//	fertigate/system/status        online/offline status (LWT)
type Topics struct {
	Prefix string
}

// NewTopics builds a topic set, falling back to the default prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// OutputState returns the retained state topic for one output point.
func (t Topics) OutputState(pointID string) string {
	return fmt.Sprintf("%s/output/%s/state", t.Prefix, pointID)
}

// OutputCommand returns the command topic for one output point.
func (t Topics) OutputCommand(pointID string) string {
	return fmt.Sprintf("%s/output/%s/command", t.Prefix, pointID)
}

// AllOutputCommands returns the wildcard pattern matching every output
// command topic.
func (t Topics) AllOutputCommands() string {
	return fmt.Sprintf("%s/output/+/command", t.Prefix)
}

// InputState returns the retained reading topic for one input point.
func (t Topics) InputState(pointID string) string {
	return fmt.Sprintf("%s/input/%s/state", t.Prefix, pointID)
}

// SystemStatus returns the controller status topic, also used as the
// LWT topic for crash detection.
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}

// CommandPointID extracts the point id from an output command topic.
// Returns false when the topic does not match the command scheme.
func (t Topics) CommandPointID(topic string) (string, bool) {
	prefix := t.Prefix + "/output/"
	if len(topic) <= len(prefix)+len("/command") {
		return "", false
	}
	if topic[:len(prefix)] != prefix {
		return "", false
	}
	rest := topic[len(prefix):]
	const suffix = "/command"
	if len(rest) <= len(suffix) || rest[len(rest)-len(suffix):] != suffix {
		return "", false
	}
	pointID := rest[:len(rest)-len(suffix)]
	for i := 0; i < len(pointID); i++ {
		if pointID[i] == '/' {
			return "", false
		}
	}
	return pointID, true
}
