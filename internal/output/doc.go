// Package output serializes relay commands through a single worker.
//
// Every mutation of physical output state, whether it originates from
// the HTTP API, an MQTT command topic or an expiring timed command,
// enters one bounded FIFO queue and is applied by one goroutine. That
// goroutine is the sole writer of relay state, which removes the race
// between, say, a scheduled dose and a manual toggle on the same
// channel.
//
// Timed activations (KindOnTimed) arm one countdown per channel. The
// dispatcher cancels the outstanding countdown before applying any new
// command for that channel, so an output re-activated mid-countdown is
// never switched off by the stale timer. Countdown expiry does not
// touch the relay directly; it submits a synthetic off command through
// the same queue.
package output
