// Package hardware describes the controller board and drives its IO.
//
// A BoardConfig is loaded from a read-only JSON description of the
// board's relay bank, digital inputs and analog inputs, including the
// point id naming scheme each bank exposes to the rest of the system.
//
// The Driver interface abstracts the physical platform. Two
// implementations exist: a Raspberry Pi driver built on gobot (relays
// on GPIO or behind a 74HC595 shift register, analog inputs through an
// MCP3008 ADC) and an in-memory mock used in development and tests.
//
// Drivers do not serialise access themselves; the output dispatcher is
// the sole writer of relay state and the input sampler the sole reader
// of input channels.
package hardware
