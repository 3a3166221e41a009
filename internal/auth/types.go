package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleViewer can read schedules, inputs and output state but cannot
	// change anything.
	RoleViewer Role = "viewer"

	// RoleManager can create, edit and delete schedules and operate outputs.
	RoleManager Role = "manager"

	// RoleOwner has everything manager can do plus user administration.
	RoleOwner Role = "owner"

	// RoleUnknown represents an invalid or uninitialised role. Never stored.
	RoleUnknown Role = "unknown"
)

// ValidRoles is the set of roles a stored user account may hold.
var ValidRoles = []Role{RoleViewer, RoleManager, RoleOwner}

// IsValidRole returns true if the role is valid for a user account.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole converts a string to a Role, returning RoleUnknown for
// anything that is not a valid stored role.
func ParseRole(s string) Role {
	r := Role(s)
	if IsValidRole(r) {
		return r
	}
	return RoleUnknown
}

// User represents a stored account. Persisted as one JSON file per user
// under the users directory.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Valid reports whether the account carries everything a stored user needs.
func (u *User) Valid() bool {
	return u.Username != "" && u.PasswordHash != "" && IsValidRole(u.Role)
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("insufficient permissions")
)
