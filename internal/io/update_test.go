package io

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

// loadUDPChannel builds a registry with a single udp-in channel from doc.
func loadUDPChannel(t *testing.T, doc string) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	if n := r.Load([]byte(doc)); n == 0 {
		t.Fatalf("no channels loaded from %q", doc)
	}
	return r
}

func TestUpdateRemoteValueMatchesDescriptorNaming(t *testing.T) {
	doc := `[{"id": "local", "type": "udp-in",
		"remote": {"channelId": "Temp1", "channelLabel": "Boiler"}}]`

	tests := []struct {
		name   string
		update RemoteUpdate
		want   int
	}{
		{"incoming id vs configured id", RemoteUpdate{ChannelID: "TEMP1"}, 1},
		{"incoming id vs configured label", RemoteUpdate{ChannelID: "boiler"}, 1},
		{"incoming label vs configured id", RemoteUpdate{ChannelLabel: "temp1"}, 1},
		{"incoming label vs configured label", RemoteUpdate{ChannelLabel: "BOILER"}, 1},
		{"no naming", RemoteUpdate{}, 0},
		{"wrong naming", RemoteUpdate{ChannelID: "other", ChannelLabel: "nope"}, 0},
		{"local id is not consulted with a descriptor", RemoteUpdate{ChannelID: "local"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loadUDPChannel(t, doc)
			tt.update.Raw = fp(1)
			if got := r.UpdateRemoteValue(context.Background(), tt.update); got != tt.want {
				t.Errorf("UpdateRemoteValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpdateRemoteValueWithoutDescriptorMatchesOwnID(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "Temp1", "type": "udp-in"}]`)

	// Any sender identity is accepted as long as the naming matches.
	n := r.UpdateRemoteValue(context.Background(), RemoteUpdate{
		MAC:       "11:22:33:44:55:66",
		IP:        "192.168.1.50",
		ChannelID: "TEMP1",
		Raw:       fp(42),
	})
	if n != 1 {
		t.Fatalf("UpdateRemoteValue() = %d, want 1", n)
	}
	if got := r.ReadRaw("Temp1"); got != 42 {
		t.Errorf("ReadRaw after update = %v, want 42", got)
	}

	// The synthesised descriptor keeps future traffic matching the same way.
	descs := r.DescribeChannels()
	if descs[0].Remote == nil || descs[0].Remote.ChannelID != "TEMP1" {
		t.Errorf("descriptor not synthesised: %+v", descs[0].Remote)
	}
}

func TestUpdateRemoteValueHostFilterAnyOf(t *testing.T) {
	doc := `[{"id": "t", "type": "udp-in",
		"remote": {"channelId": "temp", "mac": "AA", "ip": "10.0.0.1"}}]`

	tests := []struct {
		name   string
		update RemoteUpdate
		want   int
	}{
		{"mac matches, ip differs", RemoteUpdate{ChannelID: "temp", MAC: "aa", IP: "10.9.9.9"}, 1},
		{"ip matches, mac differs", RemoteUpdate{ChannelID: "temp", MAC: "BB", IP: "10.0.0.1"}, 1},
		{"neither matches", RemoteUpdate{ChannelID: "temp", MAC: "BB", IP: "10.9.9.9"}, 0},
		{"no identity at all", RemoteUpdate{ChannelID: "temp"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loadUDPChannel(t, doc)
			tt.update.Value = fp(1)
			if got := r.UpdateRemoteValue(context.Background(), tt.update); got != tt.want {
				t.Errorf("UpdateRemoteValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpdateRemoteValueHostnameFilter(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in",
		"remote": {"channelId": "temp", "hostname": "bench-2"}}]`)

	if n := r.UpdateRemoteValue(context.Background(), RemoteUpdate{ChannelID: "temp", Hostname: "BENCH-2", Raw: fp(1)}); n != 1 {
		t.Errorf("hostname match rejected, got %d", n)
	}
	if n := r.UpdateRemoteValue(context.Background(), RemoteUpdate{ChannelID: "temp", Hostname: "bench-3", Raw: fp(1)}); n != 0 {
		t.Errorf("hostname mismatch accepted, got %d", n)
	}
}

func TestUpdateRemoteValuePresence(t *testing.T) {
	ctx := context.Background()

	t.Run("raw only seeds value", func(t *testing.T) {
		r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)
		r.UpdateRemoteValue(ctx, RemoteUpdate{ChannelID: "t", Raw: fp(10)})

		snap := r.Snapshot()[0].Remote
		if snap.LastRaw == nil || *snap.LastRaw != 10 {
			t.Fatalf("last_raw = %v", snap.LastRaw)
		}
		if snap.RawSource != "remote_raw" {
			t.Errorf("raw_source = %q", snap.RawSource)
		}
		// Value was seeded from raw but the producer never supplied one.
		if r.ReadValue("t") != 10 {
			t.Errorf("ReadValue = %v, want 10", r.ReadValue("t"))
		}
	})

	t.Run("value only", func(t *testing.T) {
		r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)
		r.UpdateRemoteValue(ctx, RemoteUpdate{ChannelID: "t", Value: fp(-3)})

		// Cached value substitutes for raw.
		if got := r.ReadRaw("t"); got != -3 {
			t.Errorf("ReadRaw = %v, want -3", got)
		}
		snap := r.Snapshot()[0].Remote
		if snap.LastRaw != nil {
			t.Errorf("last_raw = %v, want absent", *snap.LastRaw)
		}
		if snap.RawSource != "remote_value" {
			t.Errorf("raw_source = %q", snap.RawSource)
		}
	})

	t.Run("non-finite numbers are not supplied", func(t *testing.T) {
		r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)
		n := r.UpdateRemoteValue(ctx, RemoteUpdate{
			ChannelID: "t",
			Raw:       fp(math.NaN()),
			Value:     fp(math.Inf(1)),
		})
		// The channel still matches and its timestamp moves, but no sample
		// is cached.
		if n != 1 {
			t.Fatalf("UpdateRemoteValue() = %d, want 1", n)
		}
		snap := r.Snapshot()[0].Remote
		if snap.LastRaw != nil || snap.LastValue != nil {
			t.Errorf("non-finite samples cached: %+v", snap)
		}
	})

	t.Run("zero and negative are legitimate", func(t *testing.T) {
		r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)
		r.UpdateRemoteValue(ctx, RemoteUpdate{ChannelID: "t", Raw: fp(0), Value: fp(-273.15)})

		snap := r.Snapshot()[0].Remote
		if snap.LastRaw == nil || *snap.LastRaw != 0 {
			t.Errorf("last_raw = %v, want 0", snap.LastRaw)
		}
		if snap.LastValue == nil || *snap.LastValue != -273.15 {
			t.Errorf("last_value = %v, want -273.15", snap.LastValue)
		}
	})
}

func TestUpdateRemoteValueIdempotentSamples(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)

	base := time.Now()
	r.now = func() time.Time { return base }

	update := RemoteUpdate{ChannelID: "t", Raw: fp(5), Value: fp(2.5)}
	ctx := context.Background()
	r.UpdateRemoteValue(ctx, update)

	r.now = func() time.Time { return base.Add(time.Second) }
	r.UpdateRemoteValue(ctx, update)

	snap := r.Snapshot()[0].Remote
	if *snap.LastRaw != 5 || *snap.LastValue != 2.5 {
		t.Errorf("samples changed by repeat: %+v", snap)
	}
	if snap.LastUpdateMS != base.Add(time.Second).UnixMilli() {
		t.Errorf("timestamp not advanced: %d", snap.LastUpdateMS)
	}
}

func TestUpdateRemoteValueBackfill(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in", "unit": "",
		"remote": {"channelId": "temp"}}]`)

	r.UpdateRemoteValue(context.Background(), RemoteUpdate{
		ChannelID: "temp",
		MAC:       "AA:BB",
		IP:        "10.0.0.7",
		Hostname:  "bench-2",
		Unit:      "C",
		Raw:       fp(1),
	})

	desc := r.DescribeChannels()[0]
	if desc.Runtime.SourceMAC != "AA:BB" || desc.Runtime.SourceIP != "10.0.0.7" || desc.Runtime.SourceHostname != "bench-2" {
		t.Errorf("resolved identity not backfilled: %+v", desc.Runtime)
	}
	if desc.Remote.ChannelUnit != "C" {
		t.Errorf("descriptor unit not backfilled: %+v", desc.Remote)
	}
}

func TestUpdateRemoteValueSkipsLocalChannels(t *testing.T) {
	r := NewRegistry(&fakeHardware{adcValue: 9})
	r.Load([]byte(`[{"id": "vin", "type": "a0"}]`))

	if n := r.UpdateRemoteValue(context.Background(), RemoteUpdate{ChannelID: "vin", Raw: fp(1)}); n != 0 {
		t.Fatalf("local channel accepted a remote update: %d", n)
	}
	if got := r.ReadRaw("vin"); got != 9 {
		t.Errorf("ReadRaw = %v, want hardware value 9", got)
	}
}

// recordingSink captures records passed to the registry's recorder.
type recordingSink struct {
	mu      sync.Mutex
	records []RemoteUpdateRecord
}

func (s *recordingSink) RecordRemoteUpdate(_ context.Context, rec RemoteUpdateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func TestUpdateRemoteValueNotifiesRecorder(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)
	sink := &recordingSink{}
	r.SetRecorder(sink)

	r.UpdateRemoteValue(context.Background(), RemoteUpdate{ChannelID: "t", Raw: fp(7), Hostname: "peer"})

	if len(sink.records) != 1 {
		t.Fatalf("recorder received %d records, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.ChannelID != "t" || rec.Hostname != "peer" || rec.Raw == nil || *rec.Raw != 7 {
		t.Errorf("record = %+v", rec)
	}
}
