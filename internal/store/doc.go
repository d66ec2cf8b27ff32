// Package store provides SQLite-backed run history.
//
// Each finished run is written once, in a single transaction, as a row in
// runs plus its case_results and step_results. Rows are never updated.
//
// # Ordering
//
// Runs are ordered by seq, a per-database counter assigned when the run is
// written, never by timestamps. Cases and steps keep the seq they had in
// the report, so a run reads back in the order it executed.
//
// # Connection settings
//
//   - journal_mode=WAL, so history can be read while a run is written
//   - synchronous=NORMAL
//   - busy_timeout=5000 (ms)
//   - foreign_keys=ON
//
// The schema version lives in PRAGMA user_version. Open refuses a database
// stamped by a newer build.
package store
