// Package influxdb provides time-series telemetry storage for MiniLab Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched sample writes
//   - Connection health monitoring
//
// # Architecture
//
// The telemetry sampler periodically snapshots the channel registry and
// writes one point per channel (raw + calibrated value) plus remote
// liveness status. Writes never block the sampling loop; the client
// batches internally and surfaces failures through an error callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteChannelSample("vin", "a0", 512, 1.69, "V")
package influxdb
