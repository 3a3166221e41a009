// Package database manages the SQLite store behind the audit trail and
// input sample history.
//
// The controller's operational state (users, schedules, locks) lives in
// small JSON files; SQLite is used only where rows accumulate and get
// queried with filters. The package handles connection setup, WAL and
// busy-timeout pragmas, health checks and embedded schema migrations.
// Migrations are additive-only: each *.up.sql file applies once, in
// filename order, inside its own transaction.
package database
