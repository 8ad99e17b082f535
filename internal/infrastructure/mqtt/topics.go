package mqtt

import "fmt"

// defaultTopicPrefix is used when the configuration leaves the prefix empty.
const defaultTopicPrefix = "minilab"

// Topics provides builders for MiniLab MQTT topics. Using these helpers
// keeps topic naming consistent between the publisher and any external
// subscribers (dashboards, loggers).
//
// The scheme is flat: <prefix>/{category}/{id}[/field]
//
//	topics := mqtt.Topics{Prefix: "minilab"}
//	topics.ChannelValue("vin") // "minilab/io/vin/value"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return defaultTopicPrefix
	}
	return t.Prefix
}

// ChannelValue returns the retained state topic for one channel's
// converted value.
//
// Example: minilab/io/vin/value
func (t Topics) ChannelValue(channelID string) string {
	return fmt.Sprintf("%s/io/%s/value", t.prefix(), channelID)
}

// ChannelRaw returns the retained state topic for one channel's raw
// sample.
//
// Example: minilab/io/vin/raw
func (t Topics) ChannelRaw(channelID string) string {
	return fmt.Sprintf("%s/io/%s/raw", t.prefix(), channelID)
}

// Snapshot returns the topic carrying the full channel table snapshot.
//
// Example: minilab/io/snapshot
func (t Topics) Snapshot() string {
	return fmt.Sprintf("%s/io/snapshot", t.prefix())
}

// SystemStatus returns the device status topic (online/offline, LWT).
//
// Example: minilab/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}
