package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSample records one input reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - pointID: input point id (e.g. "AI1")
//   - kind: "digital" or "analog"
//   - value: reading (digital levels as 0/1, analog as raw converter value)
//   - at: sample timestamp
func (c *Client) WriteSample(pointID, kind string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"input_samples",
		map[string]string{
			"controller": c.controller,
			"point_id":   pointID,
			"kind":       kind,
		},
		map[string]interface{}{"value": value},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteOutputState records one output transition.
//
// Parameters:
//   - pointID: output point id (e.g. "RLY3")
//   - on: new state
//   - origin: what caused the transition ("api", "mqtt", "timer")
//   - at: transition timestamp
func (c *Client) WriteOutputState(pointID string, on bool, origin string, at time.Time) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if on {
		state = 1
	}
	point := write.NewPoint(
		"output_state",
		map[string]string{
			"controller": c.controller,
			"point_id":   pointID,
			"origin":     origin,
		},
		map[string]interface{}{"state": state},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers do not
// cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
