package io

import "context"

// UpdateRemoteValue routes one remote value report into the channel table.
//
// The update is applied independently to every udp-in channel that passes
// both the identity match and the descriptor's host filter (see match.go).
// For each match it records whichever of raw/value was supplied as a
// finite number, seeds value from raw when no value was ever cached,
// stamps the update time, and backfills unit, descriptor naming and
// resolved source identity where previously empty. Channels without a
// descriptor synthesise one from the incoming naming so later traffic
// from the same logical source keeps matching the same way.
//
// Returns the number of channels updated.
func (r *Registry) UpdateRemoteValue(ctx context.Context, u RemoteUpdate) int {
	raw, hasRaw := finite(u.Raw)
	value, hasValue := finite(u.Value)
	now := r.now()

	var records []RemoteUpdateRecord

	r.mu.Lock()
	updated := 0
	for i := 0; i < r.count; i++ {
		ch := &r.table[i]
		if ch.Kind != KindUDPIn {
			continue
		}
		if !identityMatches(ch, u.ChannelID, u.ChannelLabel) {
			continue
		}
		if !hostMatches(ch, u.MAC, u.IP, u.Hostname) {
			continue
		}

		ch.LastUpdate = now
		if hasRaw {
			ch.LastRaw = raw
			ch.HasRaw = true
		}
		if hasValue {
			ch.LastValue = value
			ch.HasValue = true
		} else if hasRaw && !ch.HasValue {
			// Producers that only ever report raw still get a usable value.
			ch.LastValue = raw
		}

		if u.Unit != "" {
			if ch.Remote.ChannelUnit == "" {
				ch.Remote.ChannelUnit = u.Unit
			}
			if ch.Unit == "" {
				ch.Unit = u.Unit
			}
		}

		if ch.HasRemote {
			if ch.Remote.ChannelID == "" && u.ChannelID != "" {
				ch.Remote.ChannelID = u.ChannelID
			}
			if ch.Remote.ChannelLabel == "" && u.ChannelLabel != "" {
				ch.Remote.ChannelLabel = u.ChannelLabel
			}
		} else {
			// Synthesise a descriptor from the incoming naming.
			if u.ChannelID != "" {
				ch.Remote.ChannelID = u.ChannelID
			}
			if u.ChannelLabel != "" {
				ch.Remote.ChannelLabel = u.ChannelLabel
			} else if ch.Remote.ChannelLabel == "" && u.ChannelID != "" {
				ch.Remote.ChannelLabel = u.ChannelID
			}
			ch.HasRemote = ch.Remote.ChannelID != "" || ch.Remote.ChannelLabel != ""
		}

		if u.MAC != "" {
			ch.ResolvedMAC = u.MAC
			if ch.Remote.MAC == "" {
				ch.Remote.MAC = u.MAC
			}
		}
		if u.IP != "" {
			ch.ResolvedIP = u.IP
			if ch.Remote.IP == "" {
				ch.Remote.IP = u.IP
			}
		}
		if u.Hostname != "" {
			ch.ResolvedHostname = u.Hostname
			if ch.Remote.Hostname == "" {
				ch.Remote.Hostname = u.Hostname
			}
		}

		updated++
		if r.recorder != nil {
			records = append(records, RemoteUpdateRecord{
				ChannelID: ch.ID,
				MAC:       u.MAC,
				IP:        u.IP,
				Hostname:  u.Hostname,
				Raw:       u.Raw,
				Value:     u.Value,
				Unit:      u.Unit,
				At:        now,
			})
		}
	}
	r.mu.Unlock()

	// Persist outside the lock: the recorder may touch a database.
	for _, rec := range records {
		if err := r.recorder.RecordRemoteUpdate(ctx, rec); err != nil {
			r.logger.Warn("recording remote update failed",
				"channel", rec.ChannelID, "error", err)
		}
	}

	if updated > 0 {
		r.logger.Debug("remote update applied",
			"source", firstNonEmpty(u.Hostname, u.MAC, u.IP),
			"matched", updated)
	}
	return updated
}
