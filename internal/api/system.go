package api

import (
	"net/http"

	"github.com/minilabo/minilab-core/internal/infrastructure/logging"
)

// handleSystemLog returns the most recent log records from the in-memory
// ring, newest last. Returns an empty list when the ring is disabled.
func (s *Server) handleSystemLog(w http.ResponseWriter, _ *http.Request) {
	records := s.logger.Recent()
	if records == nil {
		records = []logging.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}
