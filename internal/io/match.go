package io

import (
	"math"
	"strings"
)

// textEqualFold reports whether a and b are both non-empty and equal under
// case folding. Matching is exact-string, case-insensitive; no fuzzing.
func textEqualFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// finite unwraps an optional sample, treating nil, NaN and Inf as absent.
func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// identityMatches applies the channel-naming match between an incoming
// update and a channel. With a descriptor, any of the four cross
// combinations of incoming id/label against configured id/label counts;
// without one, the incoming id or label is matched against the channel's
// own id.
func identityMatches(ch *Channel, id, label string) bool {
	if ch.HasRemote {
		return textEqualFold(ch.Remote.ChannelID, id) ||
			textEqualFold(ch.Remote.ChannelID, label) ||
			textEqualFold(ch.Remote.ChannelLabel, id) ||
			textEqualFold(ch.Remote.ChannelLabel, label)
	}
	return textEqualFold(ch.ID, id) || textEqualFold(ch.ID, label)
}

// hostMatches applies the descriptor's host filter. Each configured field
// (mac, ip, hostname) arms the filter; the update passes when at least one
// configured field matches the corresponding incoming field. An unarmed
// filter passes everything.
//
// Note the any-of semantics: a descriptor naming both a MAC and an IP
// accepts a sender matching either one. Tightening this to all-of would
// reject producers that today roam between addresses.
func hostMatches(ch *Channel, mac, ip, hostname string) bool {
	if !ch.HasRemote {
		return true
	}
	required := false
	matched := false
	if ch.Remote.MAC != "" {
		required = true
		if textEqualFold(ch.Remote.MAC, mac) {
			matched = true
		}
	}
	if ch.Remote.IP != "" {
		required = true
		if textEqualFold(ch.Remote.IP, ip) {
			matched = true
		}
	}
	if ch.Remote.Hostname != "" {
		required = true
		if textEqualFold(ch.Remote.Hostname, hostname) {
			matched = true
		}
	}
	return !required || matched
}
