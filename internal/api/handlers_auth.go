package api

import (
	"context"
	"net/http"

	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/auth"
)

// dummyHash is verified against when the username is unknown, so login
// latency does not reveal which usernames exist.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// handleLogin authenticates form credentials and issues a session cookie.
//
// POST /api/login with form fields username and password. 400 when a
// field is missing, 401 on bad credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "malformed form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.Get(username)
	if err != nil {
		// Burn comparable time before rejecting.
		//nolint:errcheck // result discarded on purpose
		auth.VerifyPassword(password, dummyHash)
		s.recordLoginFailure(r.Context(), username)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		s.recordLoginFailure(r.Context(), username)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	sess, err := s.sessions.Create(user.Username, user.Role, s.clientContext(r))
	if err != nil {
		s.logger.Error("session creation failed", "error", err, "user", user.Username)
		writeInternalError(w, "could not create session")
		return
	}

	s.setSessionCookie(w, sess.Token)
	s.record(r.Context(), audit.Entry{
		Action:   audit.ActionLogin,
		Resource: "session",
		Username: user.Username,
		Source:   "api",
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})
}

// handleLogout tears down the caller's session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(r)
	s.sessions.Invalidate(sess.Token)
	s.clearSessionCookie(w)

	s.record(r.Context(), audit.Entry{
		Action:   audit.ActionLogout,
		Resource: "session",
		Username: sess.Username,
		Source:   "api",
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged out"})
}

// handleCurrentUser returns the identity behind the presented session.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"username": sess.Username,
		"role":     sess.Role,
	})
}

// record writes one audit entry when a recorder is configured.
// Failures are logged, never surfaced to the client.
func (s *Server) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "action", e.Action, "error", err)
	}
}

// recordLoginFailure audits one rejected login attempt.
func (s *Server) recordLoginFailure(ctx context.Context, username string) {
	s.record(ctx, audit.Entry{
		Action:   audit.ActionLoginFailed,
		Resource: "session",
		Username: username,
		Source:   "api",
	})
}
