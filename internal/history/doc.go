// Package history persists accepted remote channel updates to SQLite.
//
// Every update the channel registry accepts from the sync protocol is
// recorded with its source identity and sample values, giving the HTTP
// API a queryable per-channel trail of what remote devices reported.
//
// The store is intentionally simple: one table, initialised in place,
// pruned by age. Heavy time-series analysis belongs to the InfluxDB
// telemetry sink, not here.
package history
