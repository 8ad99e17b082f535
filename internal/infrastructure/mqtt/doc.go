// Package mqtt provides MQTT client connectivity for MiniLab Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MiniLab uses MQTT as an optional outbound bridge: the telemetry
// publisher pushes channel values and snapshots to retained state topics
// so dashboards and recorders can follow the bench without speaking the
// UDP sync protocol. There is no inbound command surface; remote values
// enter through UDP only.
//
// # Security Considerations
//
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.TopicFor().ChannelValue("vin")
//	client.PublishRetained(topic, []byte(`{"value":3.31,"unit":"V"}`))
package mqtt
