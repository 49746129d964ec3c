// Package repositories implements SQLite persistence for run history.
//
// Key Implementations:
//   - [RunRepository] : Reconciliation run history with per-video addition records
//
// RunRepository doubles as the engine's tasks.RunRecorder, so a run's
// lifecycle (begin, per-append, finish) streams straight into the database.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
