// Package tasks runs the auto-adder reconciliation loop with real-time progress reporting.
//
// # Core Operation
//
// The [Engine] interface defines one operation:
//
//  1. [Engine.Process] : Reconcile a settings file against upstream feeds
//     - Loads and validates the settings document
//     - Pulls each channel's uploads newest-first and stops at the first
//     already-seen ID (the reconciliation boundary)
//     - Pulls each playlist's items, diffing by boundary or by full
//     membership depending on the selector
//     - Appends pending videos oldest-first so target order matches
//     upload chronology
//     - Checkpoints the settings file mid-batch and at end of source
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [RunRecorder] interface enables durable run history during reconciliation.
//
// Runs are recorded best-effort (errors logged) to avoid disrupting the batch.
//
// # Implementation
//
// [AutoAddEngine] implements [Engine] with dependencies on:
//   - [services.Source] : YouTube Data API client
//   - [RunRecorder] : Optional persistence layer (repositories.RunRepository)
package tasks
