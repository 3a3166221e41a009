// Package input polls the board's digital and analog input channels on
// a fixed interval and serves the cached readings to the API layer and
// telemetry sinks. The sampler is the only reader of input hardware.
package input
