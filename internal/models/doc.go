// Package models defines domain entities and persistence interfaces for the playfeed auto-adder.
//
// Persistent entities are database-backed models with full lifecycle management:
//   - [Run] : One reconciliation run of a settings file, with source and video tallies
//   - [RunAddition] : One video appended to the target playlist during a run
//
// All persistent entities implement the [Model] interface providing identity, timestamps, and validation.
package models
