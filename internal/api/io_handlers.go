package api

import (
	"encoding/json"
	"errors"
	stdio "io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minilabo/minilab-core/internal/udpsync"
)

// Discovery scan timeout bounds, in milliseconds. Scans hold an HTTP
// request open, so the window is kept short.
const (
	minScanTimeoutMS     = 100
	maxScanTimeoutMS     = 2000
	defaultScanTimeoutMS = 600
)

// handleListChannels returns the live snapshot of every channel,
// including a fresh reading and remote liveness state.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": s.registry.Snapshot(),
	})
}

// handleDescribeChannels returns the configured channel table without
// touching hardware.
func (s *Server) handleDescribeChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": s.registry.DescribeChannels(),
	})
}

// handleDescribeHardware returns the capability catalogue of local
// converters and output transducers.
func (s *Server) handleDescribeHardware(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.DescribeHardware())
}

// handleChannelHistory returns recent accepted remote updates for one channel.
func (s *Server) handleChannelHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history store is not configured")
		return
	}

	channelID := chi.URLParam(r, "id")
	if !s.channelExists(channelID) {
		writeNotFound(w, "unknown channel: "+channelID)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.List(r.Context(), channelID, limit)
	if err != nil {
		s.logger.Error("history query failed", "channel", channelID, "error", err)
		writeInternalError(w, "querying history failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel_id": channelID,
		"entries":    entries,
	})
}

// discoverRequest is the optional body of POST /io/discover.
type discoverRequestBody struct {
	TimeoutMS int `json:"timeout_ms"`
}

// handleDiscover runs an active peer discovery scan and returns the
// aggregated report. The scan timeout is clamped to keep the request
// bounded.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeJSON(w, http.StatusOK, udpsync.Report{
			Status:  udpsync.ScanStatusDisabled,
			Devices: []udpsync.DiscoveredDevice{},
		})
		return
	}

	// An empty body means defaults; a malformed one is rejected.
	var body discoverRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, stdio.EOF) {
		writeBadRequest(w, "invalid request body")
		return
	}

	timeoutMS := body.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = defaultScanTimeoutMS
	}
	if timeoutMS < minScanTimeoutMS {
		timeoutMS = minScanTimeoutMS
	}
	if timeoutMS > maxScanTimeoutMS {
		timeoutMS = maxScanTimeoutMS
	}

	report := s.sync.DiscoverPeers(r.Context(), time.Duration(timeoutMS)*time.Millisecond)
	writeJSON(w, http.StatusOK, report)
}

// channelExists reports whether the registry has a channel with this id.
func (s *Server) channelExists(id string) bool {
	for _, desc := range s.registry.DescribeChannels() {
		if desc.ID == id {
			return true
		}
	}
	return false
}
