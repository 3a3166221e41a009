// Package session implements the in-memory session registry.
//
// Sessions are bearer credentials: a 256-bit random token delivered in an
// HttpOnly cookie. Each session is bound to a coarse client fingerprint
// (SHA-256 of remote IP + user agent); a token presented from a different
// client is treated as suspected theft and the session is destroyed, not
// merely denied.
//
// Every teardown path — explicit logout, idle expiry, fingerprint
// mismatch, periodic sweep — releases the session's resource locks via
// the LockReleaser, so a crashed or hijacked editing session never pins a
// schedule lock until lock expiry.
//
// The registry owns its table exclusively. Callers receive value copies
// of sessions; there is no way to mutate registry state except through
// its methods.
package session
