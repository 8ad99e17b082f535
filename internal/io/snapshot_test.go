package io

import (
	"context"
	"testing"
	"time"
)

func TestSnapshotStatus(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		noUpdate   bool
		wantStatus string
		wantAgeMS  int64
	}{
		{"fresh", 0, false, StatusOnline, 0},
		{"within threshold", 4000 * time.Millisecond, false, StatusOnline, 4000},
		{"at threshold", StaleThreshold, false, StatusOnline, 5000},
		{"beyond threshold", 6000 * time.Millisecond, false, StatusStale, 6000},
		{"never received", 0, true, StatusWaiting, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in"}]`)

			base := time.Now()
			if !tt.noUpdate {
				r.now = func() time.Time { return base }
				r.UpdateRemoteValue(context.Background(), RemoteUpdate{ChannelID: "t", Raw: fp(1)})
				r.now = func() time.Time { return base.Add(tt.age) }
			}

			snap := r.Snapshot()[0].Remote
			if snap == nil {
				t.Fatal("udp-in channel missing remote block")
			}
			if snap.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", snap.Status, tt.wantStatus)
			}
			if snap.AgeMS != tt.wantAgeMS {
				t.Errorf("age_ms = %d, want %d", snap.AgeMS, tt.wantAgeMS)
			}
		})
	}
}

func TestSnapshotLocalChannels(t *testing.T) {
	hw := &fakeHardware{adcValue: 200}
	r := NewRegistry(hw)
	r.Load([]byte(`[{"id": "vin", "type": "a0", "k": 0.01, "b": 0.5}]`))

	snaps := r.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snaps))
	}
	s := snaps[0]
	if s.Raw != 200 {
		t.Errorf("raw = %v, want 200", s.Raw)
	}
	if s.Value != 2.5 {
		t.Errorf("value = %v, want 2.5", s.Value)
	}
	if s.Remote != nil {
		t.Error("local channel carries a remote block")
	}
}

func TestSnapshotRemoteIdentityFallsBackToDescriptor(t *testing.T) {
	r := loadUDPChannel(t, `[{"id": "t", "type": "udp-in",
		"remote": {"channelId": "temp", "mac": "AA:BB", "hostname": "bench-2"}}]`)

	snap := r.Snapshot()[0].Remote
	// Nothing resolved yet: the configured identity stands in.
	if snap.SourceMAC != "AA:BB" || snap.SourceHostname != "bench-2" {
		t.Errorf("source identity = %q/%q, want descriptor fallback", snap.SourceMAC, snap.SourceHostname)
	}

	r.UpdateRemoteValue(context.Background(), RemoteUpdate{
		ChannelID: "temp", MAC: "aa:bb", IP: "10.1.1.1", Raw: fp(1),
	})
	snap = r.Snapshot()[0].Remote
	if snap.SourceIP != "10.1.1.1" || snap.SourceMAC != "aa:bb" {
		t.Errorf("resolved identity not preferred: %+v", snap)
	}
}
