// Package telemetry exports input readings and output transitions to
// InfluxDB for long-term retention and dashboards.
//
// The export is best-effort: writes are batched and asynchronous, and
// a failed or disabled sink never affects control behaviour. Recent
// history stays queryable locally through the history package.
package telemetry
