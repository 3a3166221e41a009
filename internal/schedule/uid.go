package schedule

import (
	"fmt"
	"strings"
	"time"
)

// maxUIDNameLen caps the sanitized-name portion of a UID.
const maxUIDNameLen = 20

// GenerateUID derives a unique schedule identifier from a display name:
// the sanitized name truncated to 20 characters, an underscore, and the
// current unix time. The timestamp suffix keeps UIDs unique even for
// identical names (creation is serialised through the store).
func GenerateUID(name string, now time.Time) string {
	sanitized := sanitizeName(name)
	if len(sanitized) > maxUIDNameLen {
		sanitized = sanitized[:maxUIDNameLen]
	}
	return fmt.Sprintf("%s_%d", sanitized, now.Unix())
}

// sanitizeName makes a display name filesystem-safe: spaces become
// underscores, anything outside [a-zA-Z0-9_-] is dropped, and a name
// reduced to nothing falls back to "schedule".
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "schedule"
	}
	return b.String()
}

// validUID reports whether a UID is safe to use as a file basename.
// UIDs are produced by GenerateUID, so anything else is rejected.
func validUID(uid string) bool {
	if uid == "" || len(uid) > 64 {
		return false
	}
	for _, c := range uid {
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
