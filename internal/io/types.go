package io

import (
	"context"
	"time"
)

// Kind identifies how a channel's raw value is sourced.
//
// The set is closed: the read path dispatches on Kind with a single switch,
// and configuration maps unrecognised type strings to KindUnknown.
type Kind string

const (
	// KindLocalADC reads the built-in single-channel converter.
	KindLocalADC Kind = "a0"

	// KindMuxADC reads one input of the 4-channel ADS1115 converter.
	KindMuxADC Kind = "ads1115"

	// KindUDPIn returns the last value received from a remote device.
	KindUDPIn Kind = "udp-in"

	// KindUnknown reads as zero.
	KindUnknown Kind = "unknown"
)

// Remote channel status values reported by Snapshot.
const (
	StatusWaiting = "waiting" // never received data
	StatusOnline  = "online"  // received within StaleThreshold
	StatusStale   = "stale"   // received, but too long ago
)

// StaleThreshold separates "online" from "stale" remote data.
const StaleThreshold = 5 * time.Second

// maxChannels bounds the channel table. Entries beyond the bound are
// dropped at load time, first N in document order win.
const maxChannels = 16

// muxInputs is the number of single-ended inputs on the ADS1115.
const muxInputs = 4

// RemoteDescriptor is the configured expectation for a udp-in channel's
// producing device and its channel naming. All identity fields are
// optional; an empty field places no constraint.
type RemoteDescriptor struct {
	MAC      string
	IP       string
	Hostname string
	RxPort   int
	TxPort   int

	ChannelID    string
	ChannelLabel string
	ChannelType  string
	ChannelUnit  string
	ChannelIndex int
}

// Channel is one configured measurement point.
//
// Kind is immutable after load; for udp-in channels the remote cache
// fields (HasRaw/HasValue/LastRaw/LastValue/LastUpdate, the Resolved*
// identity and descriptor backfills) are the only runtime-mutable state,
// and the registry is their sole mutator.
type Channel struct {
	ID    string
	Kind  Kind
	Index int
	K     float64
	B     float64
	Unit  string

	HasRemote bool
	Remote    RemoteDescriptor

	// Last observed network identity of the producer, populated
	// opportunistically from accepted updates.
	ResolvedMAC      string
	ResolvedIP       string
	ResolvedHostname string

	// Cached samples. Presence flags are explicit because 0 and negative
	// are legitimate sample values.
	HasRaw     bool
	HasValue   bool
	LastRaw    float64
	LastValue  float64
	LastUpdate time.Time
}

// RemoteUpdate carries one value report from a remote device.
//
// Raw and Value are nil when the producer did not supply them; non-finite
// numbers are treated the same as absent.
type RemoteUpdate struct {
	MAC          string
	IP           string
	Hostname     string
	ChannelID    string
	ChannelLabel string
	Raw          *float64
	Value        *float64
	Unit         string
}

// RemoteUpdateRecord describes one accepted remote update for persistence.
type RemoteUpdateRecord struct {
	ChannelID string
	MAC       string
	IP        string
	Hostname  string
	Raw       *float64
	Value     *float64
	Unit      string
	At        time.Time
}

// UpdateRecorder persists accepted remote updates. Implementations must
// tolerate high call rates; errors are logged by the registry, never
// propagated to the network path.
type UpdateRecorder interface {
	RecordRemoteUpdate(ctx context.Context, rec RemoteUpdateRecord) error
}

// Logger is the minimal logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
