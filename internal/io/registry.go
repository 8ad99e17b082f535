package io

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Registry owns the fixed-capacity table of configured channels.
//
// It is the sole mutator of udp-in channel caches: consumers (HTTP layer,
// display, DMM) only read through ReadRaw/ReadValue/Snapshot, and the UDP
// sync service feeds updates in through UpdateRemoteValue.
type Registry struct {
	mu    sync.RWMutex
	table [maxChannels]Channel
	count int

	hw           Hardware
	adsAttempted bool
	adsReady     bool

	logger   Logger
	recorder UpdateRecorder

	// now is swappable for staleness tests.
	now func() time.Time
}

// NewRegistry creates an empty registry reading local channels through hw.
// hw may be nil when no local hardware exists; local reads then return 0.
func NewRegistry(hw Hardware) *Registry {
	return &Registry{
		hw:     hw,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRecorder sets the optional persistence hook for accepted remote
// updates.
func (r *Registry) SetRecorder(rec UpdateRecorder) {
	r.recorder = rec
}

// Load rebuilds the channel table wholesale from a JSON channel document:
// either a bare array of channel objects or an object with a "channels"
// array. A missing or malformed document is not an error; it yields an
// empty table. Entries beyond the table capacity are dropped, first N in
// document order win.
//
// Returns the number of channels configured.
func (r *Registry) Load(document []byte) int {
	entries := channelList(document)

	r.mu.Lock()
	r.count = 0
	r.adsAttempted = false
	r.adsReady = false

	if entries == nil {
		r.mu.Unlock()
		r.logger.Warn("channel document missing or invalid, no channels configured")
		return 0
	}

	needsMux := false
	for _, entry := range entries {
		if r.count >= maxChannels {
			r.logger.Warn("channel table full, dropping remaining entries",
				"capacity", maxChannels, "configured", len(entries))
			break
		}
		ch := parseChannel(entry, r.count+1)
		r.table[r.count] = ch
		r.count++
		if ch.Kind == KindMuxADC {
			needsMux = true
		}
		r.logger.Info("channel configured",
			"id", ch.ID, "kind", string(ch.Kind), "index", ch.Index)
		if ch.Kind == KindUDPIn && ch.HasRemote {
			r.logger.Info("remote source expected",
				"id", ch.ID,
				"channel", firstNonEmpty(ch.Remote.ChannelID, ch.Remote.ChannelLabel),
				"host", firstNonEmpty(ch.Remote.Hostname, ch.Remote.IP, ch.Remote.MAC))
		}
	}
	count := r.count
	r.mu.Unlock()

	r.logger.Info("channel table loaded", "count", count)
	if needsMux {
		r.ensureADSReady()
	}
	return count
}

// parseChannel builds one Channel from a document entry, applying the
// defaults and key aliases the wire ecosystem uses.
func parseChannel(entry Document, seq int) Channel {
	ch := Channel{
		ID:    entry.Text("id"),
		Index: entry.Int(0, "index"),
		K:     entry.Number(1.0, "k"),
		B:     entry.Number(0.0, "b"),
		Unit:  entry.Text("unit"),
	}
	if ch.ID == "" {
		ch.ID = fmt.Sprintf("ch%d", seq)
	}
	ch.Kind = normalizeKind(entry.Text("type", "kind"))
	if ch.Unit == "" {
		ch.Unit = "V"
	}

	if ch.Kind != KindUDPIn {
		return ch
	}
	remote, ok := entry.Object("remote")
	if !ok {
		return ch
	}

	ch.HasRemote = true
	ch.Remote = RemoteDescriptor{
		MAC:          remote.Text("mac", "source_mac"),
		IP:           remote.Text("ip", "source_ip"),
		Hostname:     remote.Text("hostname", "source_hostname"),
		RxPort:       remote.Int(0, "rx_port", "rxPort"),
		TxPort:       remote.Int(0, "tx_port", "txPort"),
		ChannelID:    remote.Text("channelId", "channel_id", "channel"),
		ChannelLabel: remote.Text("channelLabel", "channel_label"),
		ChannelType:  remote.Text("channelType", "channel_type"),
		ChannelUnit:  remote.Text("channelUnit", "channel_unit", "unit"),
		ChannelIndex: remote.Int(0, "channelIndex", "channel_index", "index"),
	}
	if ch.Remote.ChannelLabel == "" && ch.Remote.ChannelID != "" {
		ch.Remote.ChannelLabel = ch.Remote.ChannelID
	}
	// A channel configured without its own unit inherits the remote one.
	if entry.Text("unit") == "" && ch.Remote.ChannelUnit != "" {
		ch.Unit = ch.Remote.ChannelUnit
	}
	return ch
}

// normalizeKind maps a configured type string to a Kind. The default is
// the built-in converter; unrecognised types collapse to KindUnknown.
func normalizeKind(t string) Kind {
	switch strings.ToLower(t) {
	case "", "a0":
		return KindLocalADC
	case "ads1115":
		return KindMuxADC
	case "udp-in", "udp":
		return KindUDPIn
	default:
		return KindUnknown
	}
}

// Count returns the number of configured channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// find returns the channel with the given id, or nil. Linear search is
// deliberate: the table is small and fixed, and ids are matched exactly.
// Callers must hold r.mu.
func (r *Registry) find(id string) *Channel {
	for i := 0; i < r.count; i++ {
		if r.table[i].ID == id {
			return &r.table[i]
		}
	}
	return nil
}

// ReadRaw returns the raw sample for the named channel. Local kinds query
// the hardware synchronously; udp-in returns the cached raw sample, else
// the cached converted value as a substitute, else 0. Unknown ids read 0.
func (r *Registry) ReadRaw(id string) float64 {
	r.mu.RLock()
	ch := r.find(id)
	if ch == nil {
		r.mu.RUnlock()
		return 0
	}
	kind, index := ch.Kind, ch.Index
	if kind == KindUDPIn {
		defer r.mu.RUnlock()
		switch {
		case ch.HasRaw:
			return ch.LastRaw
		case ch.HasValue:
			return ch.LastValue
		default:
			return 0
		}
	}
	r.mu.RUnlock()

	switch kind {
	case KindLocalADC:
		if r.hw == nil {
			return 0
		}
		raw, err := r.hw.ReadADC(index)
		if err != nil {
			return 0
		}
		return float64(raw)
	case KindMuxADC:
		if r.hw == nil || index < 0 || index >= muxInputs || !r.ensureADSReady() {
			return 0
		}
		raw, err := r.hw.ReadADSChannel(index)
		if err != nil {
			return 0
		}
		return float64(raw)
	default:
		return 0
	}
}

// Convert applies the channel's linear calibration: k*raw + b. Unknown
// ids convert to 0.
func (r *Registry) Convert(id string, raw float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch := r.find(id)
	if ch == nil {
		return 0
	}
	return ch.K*raw + ch.B
}

// ReadValue reads and converts in one call.
func (r *Registry) ReadValue(id string) float64 {
	return r.Convert(id, r.ReadRaw(id))
}

// ensureADSReady lazily initialises the multiplexed converter, at most
// once per load, and remembers the outcome.
func (r *Registry) ensureADSReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adsAttempted {
		return r.adsReady
	}
	r.adsAttempted = true
	if r.hw == nil {
		return false
	}
	if err := r.hw.InitADS(); err != nil {
		r.logger.Warn("ads1115 init failed", "error", err)
		return false
	}
	r.adsReady = true
	r.logger.Info("ads1115 initialised")
	return true
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
