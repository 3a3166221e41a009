package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/output"
)

// outputCommandRequest is the POST /api/output/command body.
type outputCommandRequest struct {
	PointID    string `json:"pointId"`
	Command    string `json:"command"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// handleListOutputs returns the dispatcher's state for every output
// channel in board order.
func (s *Server) handleListOutputs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"outputs": s.dispatcher.Snapshot(),
	})
}

// handleOutputCommand queues one manual output command. The command is
// applied asynchronously by the dispatch worker; clients observe the
// result on the event stream or by polling /api/outputs.
func (s *Server) handleOutputCommand(w http.ResponseWriter, r *http.Request) {
	var req outputCommandRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if !s.dispatcher.Valid(req.PointID) {
		writeNotFound(w, "unknown output point")
		return
	}

	kind, err := output.ParseKind(req.Command)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if kind == output.KindOnTimed && req.DurationMs <= 0 {
		writeBadRequest(w, "on_timed requires a positive durationMs")
		return
	}

	cmd := output.Command{
		PointID:  req.PointID,
		Kind:     kind,
		Duration: time.Duration(req.DurationMs) * time.Millisecond,
		Origin:   "api",
	}
	if !s.dispatcher.Submit(cmd) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeBusy, "output command queue full")
		return
	}

	sess := s.sessionFrom(r)
	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionOutputCommand,
		Resource:   "output",
		ResourceID: req.PointID,
		Username:   sess.Username,
		Source:     "api",
		Details: map[string]any{
			"command":    req.Command,
			"durationMs": req.DurationMs,
		},
	})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":  true,
		"pointId": req.PointID,
		"command": req.Command,
	})
}
