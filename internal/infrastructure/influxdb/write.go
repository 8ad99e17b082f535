package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteChannelSample writes one channel reading to InfluxDB.
//
// This is the primary method for recording bench telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - channelID: Registry channel identifier (e.g., "vin")
//   - kind: Channel kind tag ("a0", "ads1115", "udp-in")
//   - raw: Raw sample before calibration
//   - value: Calibrated value (k*raw + b)
//   - unit: Display unit tag (e.g., "V", "C")
//
// Example:
//
//	client.WriteChannelSample("vin", "a0", 512, 1.69, "V")
func (c *Client) WriteChannelSample(channelID, kind string, raw, value float64, unit string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"channel_samples",
		map[string]string{
			"channel_id": channelID,
			"kind":       kind,
			"unit":       unit,
		},
		map[string]interface{}{
			"raw":   raw,
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRemoteStatus writes the liveness status of one remote-fed channel.
//
// Parameters:
//   - channelID: Registry channel identifier
//   - sourceMAC: MAC of the device feeding the channel (may be empty)
//   - status: "waiting", "online" or "stale"
//   - ageMS: Milliseconds since the last accepted update, -1 when none
func (c *Client) WriteRemoteStatus(channelID, sourceMAC, status string, ageMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"remote_status",
		map[string]string{
			"channel_id": channelID,
			"source_mac": sourceMAC,
			"status":     status,
		},
		map[string]interface{}{
			"age_ms": ageMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "bench-1"},
//	    map[string]interface{}{"goroutines": 24})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
