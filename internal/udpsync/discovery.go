package udpsync

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Scan report statuses.
const (
	ScanStatusOK        = "ok"
	ScanStatusNoDevices = "no_devices"
	ScanStatusDisabled  = "udp_disabled"
)

// defaultScanTimeout bounds a scan when the caller passes none. Callers
// should keep timeouts in the hundreds of milliseconds.
const defaultScanTimeout = 600 * time.Millisecond

// PeerInput is one input channel advertised by a peer device.
type PeerInput struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Index int     `json:"index"`
	Unit  string  `json:"unit"`
	K     float64 `json:"k"`
	B     float64 `json:"b"`
}

// DiscoveredDevice is one peer heard from during a scan. LastSeenMS is
// the elapsed scan time when its most recent reply arrived.
type DiscoveredDevice struct {
	MAC        string      `json:"mac"`
	Hostname   string      `json:"hostname"`
	IP         string      `json:"ip"`
	RxPort     int         `json:"rx_port"`
	TxPort     int         `json:"tx_port"`
	Inputs     []PeerInput `json:"inputs"`
	LastSeenMS int64       `json:"lastSeenMs"`
}

// Report is the aggregated result of one discovery scan.
type Report struct {
	Status    string             `json:"status"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Devices   []DiscoveredDevice `json:"devices"`
}

// DiscoverPeers broadcasts one discovery request and collects replies
// until the timeout (or ctx) expires.
//
// Replies are keyed by MAC: a second reply from the same device replaces
// its earlier record wholesale, including the advertised input list.
// Normal inbound servicing continues for the duration of the scan; only
// discovery replies are diverted into the collector.
func (s *Service) DiscoverPeers(ctx context.Context, timeout time.Duration) Report {
	report := Report{Devices: []DiscoveredDevice{}}
	if !s.Running() {
		report.Status = ScanStatusDisabled
		return report
	}
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}

	collector := make(chan scanPacket, 32)
	s.mu.Lock()
	s.scan = collector
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scan = nil
		s.mu.Unlock()
	}()

	probe, err := json.Marshal(discoverRequest{Cmd: msgDiscover, MAC: s.ident.MAC})
	if err == nil {
		// Peers listen for discovery on the conventional receive port.
		if berr := s.broadcast(probe, s.port()); berr != nil {
			s.logger.Warn("discovery broadcast failed", "error", berr)
		}
	}
	s.logger.Info("discovery scan started", "timeout_ms", timeout.Milliseconds())

	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case <-deadline.C:
			break collect
		case pkt := <-collector:
			s.mergeReply(&report, pkt, time.Since(start))
		}
	}

	report.ElapsedMS = time.Since(start).Milliseconds()
	if len(report.Devices) > 0 {
		report.Status = ScanStatusOK
	} else {
		report.Status = ScanStatusNoDevices
	}
	s.logger.Info("discovery scan finished",
		"devices", len(report.Devices), "elapsed_ms", report.ElapsedMS)
	return report
}

// mergeReply folds one discovery reply into the report, replacing any
// earlier record with the same MAC.
func (s *Service) mergeReply(report *Report, pkt scanPacket, elapsed time.Duration) {
	doc := pkt.doc
	device := DiscoveredDevice{
		MAC:        doc.Text("mac"),
		Hostname:   doc.Text("hostname"),
		IP:         firstNonEmpty(doc.Text("ip"), pkt.addr.IP.String()),
		RxPort:     doc.Int(s.cfg.RxPort, "rx_port", "rxPort"),
		TxPort:     doc.Int(s.cfg.TxPort, "tx_port", "txPort"),
		Inputs:     []PeerInput{},
		LastSeenMS: elapsed.Milliseconds(),
	}
	if inputs, ok := doc.Array("inputs"); ok {
		for _, in := range inputs {
			device.Inputs = append(device.Inputs, PeerInput{
				ID:    in.Text("id"),
				Type:  in.Text("type"),
				Index: in.Int(0, "index"),
				Unit:  in.Text("unit"),
				K:     in.Number(0, "k"),
				B:     in.Number(0, "b"),
			})
		}
	}

	if device.MAC != "" {
		for i := range report.Devices {
			if strings.EqualFold(report.Devices[i].MAC, device.MAC) {
				report.Devices[i] = device
				return
			}
		}
	}
	report.Devices = append(report.Devices, device)
}
