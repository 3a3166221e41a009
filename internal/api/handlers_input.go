package api

import (
	"net/http"
	"strconv"
	"time"
)

// defaultHistoryWindow is how far back the history endpoint reaches
// when the caller does not say.
const defaultHistoryWindow = 24 * time.Hour

// handleListInputs returns the sampler's cached snapshot. Reads never
// touch hardware; the poll loop is the only reader of the converters.
func (s *Server) handleListInputs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sampler.Current())
}

// handleInputHistory returns persisted samples for one input point,
// newest first.
//
// Query parameters: point (required), since (RFC 3339, default 24h
// ago), limit (default 100, max 1000).
func (s *Server) handleInputHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history is not enabled")
		return
	}

	pointID := r.URL.Query().Get("point")
	if pointID == "" {
		writeBadRequest(w, "point query parameter is required")
		return
	}

	since := time.Now().Add(-defaultHistoryWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	samples, err := s.history.Query(r.Context(), pointID, since, limit)
	if err != nil {
		s.logger.Error("history query failed", "point", pointID, "error", err)
		writeInternalError(w, "could not query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"point":   pointID,
		"samples": samples,
	})
}
