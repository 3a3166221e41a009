// Package lock implements persisted, session-scoped advisory edit locks.
//
// A lock binds one resource (a schedule or template) to the single
// session allowed to edit it. The full lock set lives in one JSON file
// rewritten on every mutation; all mutations are serialised behind one
// mutex so concurrent acquire/release cycles can never lose each other's
// writes.
//
// Locks are advisory: they protect the editing workflow, not the files
// themselves. They are released explicitly, in bulk when their session
// ends, or by the periodic expiry sweep (disabled when the timeout is 0).
package lock
