package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/fertigate-core/internal/audit"
)

// handleAudit returns one page of the audit trail, newest first.
//
// Query parameters: action, resource, username (exact-match filters),
// limit (default 50, max 200), offset.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "auditing is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
		Username: q.Get("username"),
	}
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = parsed
	}
	if raw := q.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "offset must not be negative")
			return
		}
		filter.Offset = parsed
	}

	page, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeInternalError(w, "could not query audit trail")
		return
	}

	writeJSON(w, http.StatusOK, page)
}
