package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/minilabo/minilab-core/internal/infrastructure/mqtt"
	"github.com/minilabo/minilab-core/internal/io"
)

// defaultInterval is the sampling period when the configuration leaves
// it unset.
const defaultInterval = time.Second

// Publisher is the outbound MQTT surface the sampler needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	TopicFor() mqtt.Topics
	IsConnected() bool
}

// SampleWriter is the time-series surface the sampler needs.
// *influxdb.Client satisfies it.
type SampleWriter interface {
	WriteChannelSample(channelID, kind string, raw, value float64, unit string)
	WriteRemoteStatus(channelID, sourceMAC, status string, ageMS int64)
}

// Logger is the minimal logging interface used by the sampler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sampler periodically snapshots the channel registry and fans the
// readings out to MQTT and InfluxDB. Both sinks are optional; a nil
// sink is skipped.
type Sampler struct {
	registry  *io.Registry
	publisher Publisher
	writer    SampleWriter
	interval  time.Duration
	logger    Logger

	// now is swappable for tests.
	now func() time.Time
}

// channelValuePayload is the JSON body published per channel.
type channelValuePayload struct {
	ID    string  `json:"id"`
	Raw   float64 `json:"raw"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	TS    int64   `json:"ts"`
}

// New creates a sampler over the registry. Pass nil for sinks that are
// not configured.
func New(registry *io.Registry, publisher Publisher, writer SampleWriter, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sampler{
		registry:  registry,
		publisher: publisher,
		writer:    writer,
		interval:  interval,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the sampler.
func (s *Sampler) SetLogger(logger Logger) {
	s.logger = logger
}

// Run samples at the configured interval until ctx is cancelled.
// It is intended to run in its own goroutine.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample takes one registry snapshot and pushes it to the configured
// sinks. Publish failures are logged and do not stop the pass.
func (s *Sampler) Sample() {
	snapshot := s.registry.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	s.publishMQTT(snapshot)
	s.writeInflux(snapshot)
}

func (s *Sampler) publishMQTT(snapshot []io.ChannelSnapshot) {
	if s.publisher == nil || !s.publisher.IsConnected() {
		return
	}
	topics := s.publisher.TopicFor()
	ts := s.now().UnixMilli()

	for _, ch := range snapshot {
		payload, err := json.Marshal(channelValuePayload{
			ID:    ch.ID,
			Raw:   ch.Raw,
			Value: ch.Value,
			Unit:  ch.Unit,
			TS:    ts,
		})
		if err != nil {
			continue
		}
		if err := s.publisher.PublishRetained(topics.ChannelValue(ch.ID), payload); err != nil {
			s.logger.Warn("publishing channel value failed", "channel", ch.ID, "error", err)
		}
	}

	full, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.publisher.PublishRetained(topics.Snapshot(), full); err != nil {
		s.logger.Warn("publishing snapshot failed", "error", err)
	}
}

func (s *Sampler) writeInflux(snapshot []io.ChannelSnapshot) {
	if s.writer == nil {
		return
	}
	for _, ch := range snapshot {
		s.writer.WriteChannelSample(ch.ID, string(ch.Kind), ch.Raw, ch.Value, ch.Unit)
		if ch.Remote != nil {
			s.writer.WriteRemoteStatus(ch.ID, ch.Remote.SourceMAC, ch.Remote.Status, ch.Remote.AgeMS)
		}
	}
}
