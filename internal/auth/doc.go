// Package auth provides user accounts, password hashing, and the
// role-based authorisation model.
//
// Accounts are persisted as one JSON file per user under the configured
// users directory. Passwords are hashed with Argon2id and stored in PHC
// string format. Authorisation is a fixed role→permission table; callers
// ask HasPermission rather than comparing roles.
//
// Roles:
//   - viewer: read-only access to schedules, inputs, and output state
//   - manager: schedule mutation and manual output control
//   - owner: everything plus user administration
//
// On first boot, if the users directory is empty, SeedOwner creates an
// "owner" account with a random password that is logged once and must be
// changed immediately.
package auth
