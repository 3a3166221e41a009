package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/auth"
)

// minPasswordLength is the shortest password accepted on account
// creation and password change.
const minPasswordLength = 8

// userView is the password-free account representation returned by the
// users endpoints.
type userView struct {
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// userCreateRequest is the POST /api/users body.
type userCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// passwordChangeRequest is the PUT /api/users/{username}/password body.
type passwordChangeRequest struct {
	Password string `json:"password"`
}

// handleListUsers returns every stored account without password hashes.
func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := s.users.List()
	if err != nil {
		s.logger.Error("user list failed", "error", err)
		writeInternalError(w, "could not list users")
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			Username:  u.Username,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, views)
}

// handleCreateUser creates one account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if !auth.IsValidUsername(req.Username) {
		writeBadRequest(w, "invalid username")
		return
	}
	role := auth.ParseRole(req.Role)
	if role == auth.RoleUnknown {
		writeBadRequest(w, "role must be viewer, manager or owner")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		writeInternalError(w, "could not create user")
		return
	}

	now := time.Now().UTC()
	user := &auth.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeConflict(w, "username already exists")
			return
		}
		s.logger.Error("user create failed", "username", req.Username, "error", err)
		writeInternalError(w, "could not create user")
		return
	}

	sess := s.sessionFrom(r)
	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionCreate,
		Resource:   "user",
		ResourceID: user.Username,
		Username:   sess.Username,
		Source:     "api",
		Details:    map[string]any{"role": string(role)},
	})

	writeJSON(w, http.StatusCreated, userView{
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// handleDeleteUser removes one account. Callers cannot delete
// themselves; that path is a logout followed by another owner removing
// the account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	sess := s.sessionFrom(r)
	if username == sess.Username {
		writeBadRequest(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		if errors.Is(err, auth.ErrInvalidUsername) {
			writeBadRequest(w, "invalid username")
			return
		}
		s.logger.Error("user delete failed", "username", username, "error", err)
		writeInternalError(w, "could not delete user")
		return
	}

	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionDelete,
		Resource:   "user",
		ResourceID: username,
		Username:   sess.Username,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, map[string]any{"deleted": username})
}

// handleSetPassword replaces one account's password.
func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req passwordChangeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	user, err := s.users.Get(username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("user read failed", "username", username, "error", err)
		writeInternalError(w, "could not read user")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		writeInternalError(w, "could not update password")
		return
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(user); err != nil {
		s.logger.Error("user update failed", "username", username, "error", err)
		writeInternalError(w, "could not update password")
		return
	}

	sess := s.sessionFrom(r)
	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionUpdate,
		Resource:   "user",
		ResourceID: username,
		Username:   sess.Username,
		Source:     "api",
		Details:    map[string]any{"field": "password"},
	})

	writeJSON(w, http.StatusOK, map[string]any{"updated": username})
}
