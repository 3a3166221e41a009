package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fertigate-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	if s.cfg.TLS.Enabled {
		r.Use(securityHeadersMiddleware)
	}

	r.Route("/api", func(r chi.Router) {
		// Unauthenticated endpoints
		r.Get("/health", s.handleHealth)
		r.Post("/login", s.handleLogin)

		// Everything else requires a live session
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/logout", s.handleLogout)
			r.Get("/user", s.handleCurrentUser)

			// Schedules; uid is passed as a query parameter
			r.Get("/schedules", s.handleListSchedules)
			r.With(s.requirePermission(auth.PermScheduleWrite)).
				Post("/schedules/reconcile", s.handleReconcileSchedules)
			r.Route("/schedule", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermScheduleWrite))
					r.Use(s.scheduleBodyLimit)
					r.Post("/", s.handleCreateSchedule)
					r.Put("/", s.handleUpdateSchedule)
					r.Delete("/", s.handleDeleteSchedule)
					r.Post("/lock", s.handleAcquireScheduleLock)
					r.Delete("/lock", s.handleReleaseScheduleLock)
				})
			})

			// Outputs
			r.Get("/outputs", s.handleListOutputs)
			r.With(s.requirePermission(auth.PermOutputOperate)).
				Post("/output/command", s.handleOutputCommand)

			// Inputs
			r.Get("/inputs", s.handleListInputs)
			r.Get("/inputs/history", s.handleInputHistory)

			// User administration (Owner only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Delete("/{username}", s.handleDeleteUser)
				r.Put("/{username}/password", s.handleSetPassword)
			})

			// Audit trail (Owner only)
			r.With(s.requirePermission(auth.PermUserManage)).
				Get("/audit", s.handleAudit)

			// WebSocket event stream; auth via the session cookie like
			// every other protected route.
			r.Get("/events", s.handleEvents)
		})
	})

	// Local web UI. API routes above take precedence.
	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
