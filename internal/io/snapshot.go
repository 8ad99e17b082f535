package io

import "time"

// ChannelSnapshot is one channel's live view, as served to consumers.
type ChannelSnapshot struct {
	ID    string  `json:"id"`
	Kind  Kind    `json:"type"`
	Index int     `json:"index"`
	K     float64 `json:"k"`
	B     float64 `json:"b"`
	Unit  string  `json:"unit"`
	Raw   float64 `json:"raw"`
	Value float64 `json:"value"`

	Remote *RemoteSnapshot `json:"remote,omitempty"`
}

// RemoteSnapshot summarises a udp-in channel's descriptor and cache state.
type RemoteSnapshot struct {
	Configured   bool   `json:"configured"`
	ChannelID    string `json:"channel_id,omitempty"`
	ChannelLabel string `json:"channel_label,omitempty"`
	ChannelType  string `json:"channel_type,omitempty"`
	ChannelIndex int    `json:"channel_index"`
	ChannelUnit  string `json:"channel_unit,omitempty"`
	MAC          string `json:"mac,omitempty"`
	IP           string `json:"ip,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	RxPort       int    `json:"rx_port,omitempty"`
	TxPort       int    `json:"tx_port,omitempty"`

	Status       string   `json:"status"`
	AgeMS        int64    `json:"age_ms"`
	LastUpdateMS int64    `json:"last_update_ms,omitempty"`
	LastRaw      *float64 `json:"last_raw,omitempty"`
	LastValue    *float64 `json:"last_value,omitempty"`
	RawSource    string   `json:"raw_source,omitempty"`

	SourceMAC      string `json:"source_mac,omitempty"`
	SourceIP       string `json:"source_ip,omitempty"`
	SourceHostname string `json:"source_hostname,omitempty"`
}

// Snapshot emits the live state of every channel, including a fresh
// raw+converted reading. For udp-in channels it derives a status:
// "waiting" before any data, "online" within StaleThreshold of the last
// accepted update, "stale" beyond it. age_ms is -1 while waiting.
func (r *Registry) Snapshot() []ChannelSnapshot {
	// Collect the table under the read lock; hardware reads happen after,
	// since ReadRaw locks on its own.
	r.mu.RLock()
	channels := make([]Channel, r.count)
	copy(channels, r.table[:r.count])
	now := r.now()
	r.mu.RUnlock()

	out := make([]ChannelSnapshot, 0, len(channels))
	for i := range channels {
		ch := &channels[i]
		raw := r.ReadRaw(ch.ID)
		snap := ChannelSnapshot{
			ID:    ch.ID,
			Kind:  ch.Kind,
			Index: ch.Index,
			K:     ch.K,
			B:     ch.B,
			Unit:  ch.Unit,
			Raw:   raw,
			Value: ch.K*raw + ch.B,
		}
		if ch.Kind == KindUDPIn {
			snap.Remote = remoteSnapshot(ch, now)
		}
		out = append(out, snap)
	}
	return out
}

func remoteSnapshot(ch *Channel, now time.Time) *RemoteSnapshot {
	rs := &RemoteSnapshot{
		Configured: ch.HasRemote,
	}
	if ch.HasRemote {
		rs.ChannelID = ch.Remote.ChannelID
		rs.ChannelLabel = ch.Remote.ChannelLabel
		rs.ChannelType = ch.Remote.ChannelType
		rs.ChannelIndex = ch.Remote.ChannelIndex
		rs.ChannelUnit = ch.Remote.ChannelUnit
		rs.MAC = ch.Remote.MAC
		rs.IP = ch.Remote.IP
		rs.Hostname = ch.Remote.Hostname
		rs.RxPort = ch.Remote.RxPort
		rs.TxPort = ch.Remote.TxPort
	}

	if ch.HasRaw || ch.HasValue {
		age := now.Sub(ch.LastUpdate)
		rs.AgeMS = age.Milliseconds()
		if age > StaleThreshold {
			rs.Status = StatusStale
		} else {
			rs.Status = StatusOnline
		}
		rs.LastUpdateMS = ch.LastUpdate.UnixMilli()
		if ch.HasRaw {
			raw := ch.LastRaw
			rs.LastRaw = &raw
			rs.RawSource = "remote_raw"
		}
		if ch.HasValue {
			value := ch.LastValue
			rs.LastValue = &value
			if !ch.HasRaw {
				rs.RawSource = "remote_value"
			}
		}
	} else {
		rs.Status = StatusWaiting
		rs.AgeMS = -1
	}

	rs.SourceMAC = firstNonEmpty(ch.ResolvedMAC, ch.Remote.MAC)
	rs.SourceIP = firstNonEmpty(ch.ResolvedIP, ch.Remote.IP)
	rs.SourceHostname = firstNonEmpty(ch.ResolvedHostname, ch.Remote.Hostname)
	return rs
}
