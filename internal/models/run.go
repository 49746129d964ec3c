package models

import (
	"fmt"
	"time"
)

var (
	_ Model = (*Run)(nil)
	_ Model = (*RunAddition)(nil)
)

// RunStatus enumerates the lifecycle states of a reconciliation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

func validRunStatus(s RunStatus) bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run records one reconciliation run of a settings file.
type Run struct {
	id               string
	sequence         int
	configName       string
	settingsPath     string
	status           RunStatus
	sourcesTotal     int
	sourcesCompleted int
	sourcesSkipped   int
	videosAdded      int
	errorMessage     string
	startedAt        time.Time
	completedAt      *time.Time
	createdAt        time.Time
	updatedAt        time.Time
}

// NewRun creates a running Run for the given settings file.
func NewRun(sequence int, configName, settingsPath string) *Run {
	now := time.Now()
	return &Run{
		sequence:     sequence,
		configName:   configName,
		settingsPath: settingsPath,
		status:       RunStatusRunning,
		startedAt:    now,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (r *Run) ID() string           { return r.id }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }

func (r *Run) SetID(id string)             { r.id = id }
func (r *Run) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *Run) SetStartedAt(t time.Time)    { r.startedAt = t }
func (r *Run) SetCreatedAt(t time.Time)    { r.createdAt = t }
func (r *Run) SetCompletedAt(t *time.Time) { r.completedAt = t }

func (r *Run) Sequence() int           { return r.sequence }
func (r *Run) ConfigName() string      { return r.configName }
func (r *Run) SettingsPath() string    { return r.settingsPath }
func (r *Run) Status() RunStatus       { return r.status }
func (r *Run) SourcesTotal() int       { return r.sourcesTotal }
func (r *Run) SourcesCompleted() int   { return r.sourcesCompleted }
func (r *Run) SourcesSkipped() int     { return r.sourcesSkipped }
func (r *Run) VideosAdded() int        { return r.videosAdded }
func (r *Run) ErrorMessage() string    { return r.errorMessage }
func (r *Run) StartedAt() time.Time    { return r.startedAt }
func (r *Run) CompletedAt() *time.Time { return r.completedAt }

// SetStatus transitions the run to status without touching timestamps.
func (r *Run) SetStatus(status RunStatus) { r.status = status }

// SetErrorMessage records the failure detail without touching timestamps.
func (r *Run) SetErrorMessage(msg string) { r.errorMessage = msg }

// SetCounts records the source and video tallies.
func (r *Run) SetCounts(total, completed, skipped, added int) {
	r.sourcesTotal = total
	r.sourcesCompleted = completed
	r.sourcesSkipped = skipped
	r.videosAdded = added
}

// Finish transitions the run to a terminal status with the final tallies.
func (r *Run) Finish(status RunStatus, errorMessage string) {
	now := time.Now()
	r.status = status
	r.errorMessage = errorMessage
	r.completedAt = &now
	r.updatedAt = now
}

// Validate checks that the run references a settings file and carries a
// known status.
func (r *Run) Validate() error {
	if r.configName == "" {
		return fmt.Errorf("run config name is required")
	}
	if r.settingsPath == "" {
		return fmt.Errorf("run settings path is required")
	}
	if !validRunStatus(r.status) {
		return fmt.Errorf("invalid run status: %s", r.status)
	}
	return nil
}

// RunAddition records one video appended to the target playlist during a run.
type RunAddition struct {
	id         string
	runID      string
	sourceID   string
	sourceKind string
	videoID    string
	position   int
	addedAt    time.Time
}

// NewRunAddition creates an addition record. sourceKind is "channel" or
// "playlist"; position is the append's zero-based index within its source
// batch.
func NewRunAddition(runID, sourceID, sourceKind, videoID string, position int) *RunAddition {
	return &RunAddition{
		runID:      runID,
		sourceID:   sourceID,
		sourceKind: sourceKind,
		videoID:    videoID,
		position:   position,
		addedAt:    time.Now(),
	}
}

func (a *RunAddition) ID() string           { return a.id }
func (a *RunAddition) CreatedAt() time.Time { return a.addedAt }
func (a *RunAddition) UpdatedAt() time.Time { return a.addedAt }

func (a *RunAddition) SetID(id string)        { a.id = id }
func (a *RunAddition) SetAddedAt(t time.Time) { a.addedAt = t }

func (a *RunAddition) RunID() string      { return a.runID }
func (a *RunAddition) SourceID() string   { return a.sourceID }
func (a *RunAddition) SourceKind() string { return a.sourceKind }
func (a *RunAddition) VideoID() string    { return a.videoID }
func (a *RunAddition) Position() int      { return a.position }
func (a *RunAddition) AddedAt() time.Time { return a.addedAt }

// Validate checks referential fields and the source kind enum.
func (a *RunAddition) Validate() error {
	if a.runID == "" {
		return fmt.Errorf("addition run ID is required")
	}
	if a.sourceID == "" {
		return fmt.Errorf("addition source ID is required")
	}
	if a.sourceKind != "channel" && a.sourceKind != "playlist" {
		return fmt.Errorf("invalid source kind: %s", a.sourceKind)
	}
	if a.videoID == "" {
		return fmt.Errorf("addition video ID is required")
	}
	if a.position < 0 {
		return fmt.Errorf("addition position must be non-negative")
	}
	return nil
}
