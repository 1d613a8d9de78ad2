// Package database provides SQLite-based run history.
//
// Every pipeline run can be recorded in a HistoryDB: a summary row per run,
// the full run report as JSON, and one row per record outcome so the
// history of a single issue can be queried across runs.
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no CGO. WAL mode is enabled by default.
package database
