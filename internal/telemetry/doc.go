// Package telemetry fans channel readings out to external sinks.
//
// A single sampler goroutine snapshots the channel registry once per
// interval and pushes the result to the optional MQTT publisher (retained
// per-channel topics plus a full snapshot topic) and the optional
// InfluxDB writer. Sinks are independent: either can be absent, and a
// failing publish never interrupts the sampling loop.
package telemetry
