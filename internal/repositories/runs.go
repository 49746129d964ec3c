package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sondrake/playfeed/internal/models"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/sondrake/playfeed/internal/tasks"
)

// RunRepository persists reconciliation run history. It implements
// [tasks.RunRecorder] so the engine can stream lifecycle events into it.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// BeginRun opens a history record for a run of the given settings file and
// returns the new run's ID.
func (r *RunRepository) BeginRun(configName, settingsPath string) (string, error) {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return "", fmt.Errorf("failed to generate sequence: %w", err)
	}

	run := models.NewRun(sequence, configName, settingsPath)
	run.SetID(shared.GenerateID())

	if err := run.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, sequence, config_name, settings_path, status, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, run.ID(), run.Sequence(), run.ConfigName(), run.SettingsPath(),
		string(run.Status()), run.StartedAt(), run.CreatedAt(), run.UpdatedAt())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return run.ID(), nil
}

// RecordAddition stores one successful playlist append for the run.
func (r *RunRepository) RecordAddition(runID, sourceID, sourceKind, videoID string, position int) error {
	addition := models.NewRunAddition(runID, sourceID, sourceKind, videoID, position)
	addition.SetID(shared.GenerateID())

	if err := addition.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO run_additions (id, run_id, source_id, source_kind, video_id, position, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, addition.ID(), addition.RunID(), addition.SourceID(),
		addition.SourceKind(), addition.VideoID(), addition.Position(), addition.AddedAt())
	if err != nil {
		return fmt.Errorf("failed to insert addition: %w", err)
	}

	return nil
}

// FinishRun closes the record with the final tallies and a terminal status
// derived from runErr.
func (r *RunRepository) FinishRun(runID string, summary tasks.RunSummary, runErr error) error {
	status := models.RunStatusCompleted
	errorMessage := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, shared.ErrRunCancelled):
		status = models.RunStatusCancelled
		errorMessage = runErr.Error()
	default:
		status = models.RunStatusFailed
		errorMessage = runErr.Error()
	}

	now := time.Now()

	query := `
		UPDATE runs
		SET status = ?, sources_total = ?, sources_completed = ?, sources_skipped = ?,
			videos_added = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, string(status), summary.SourcesTotal, summary.SourcesCompleted,
		summary.SourcesSkipped, summary.VideosAdded, errorMessage, now, now, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, config_name, settings_path, status, sources_total, sources_completed,
			sources_skipped, videos_added, error_message, started_at, completed_at, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	return scanRun(r.db.QueryRow(query, id))
}

// Recent retrieves the most recently started runs, newest first.
func (r *RunRepository) Recent(limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, sequence, config_name, settings_path, status, sources_total, sources_completed,
			sources_skipped, videos_added, error_message, started_at, completed_at, created_at, updated_at
		FROM runs
		ORDER BY started_at DESC, sequence DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Additions retrieves every video appended during the run, in append order.
func (r *RunRepository) Additions(runID string) ([]*models.RunAddition, error) {
	query := `
		SELECT id, run_id, source_id, source_kind, video_id, position, added_at
		FROM run_additions
		WHERE run_id = ?
		ORDER BY added_at ASC, position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query additions: %w", err)
	}
	defer rows.Close()

	var additions []*models.RunAddition
	for rows.Next() {
		var (
			id         string
			run        string
			sourceID   string
			sourceKind string
			videoID    string
			position   int
			addedAt    time.Time
		)
		if err := rows.Scan(&id, &run, &sourceID, &sourceKind, &videoID, &position, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan addition: %w", err)
		}

		addition := models.NewRunAddition(run, sourceID, sourceKind, videoID, position)
		addition.SetID(id)
		addition.SetAddedAt(addedAt)
		additions = append(additions, addition)
	}

	return additions, rows.Err()
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		id               string
		sequence         int
		configName       string
		settingsPath     string
		status           string
		sourcesTotal     int
		sourcesCompleted int
		sourcesSkipped   int
		videosAdded      int
		errorMessage     sql.NullString
		startedAt        time.Time
		completedAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := row.Scan(&id, &sequence, &configName, &settingsPath, &status, &sourcesTotal,
		&sourcesCompleted, &sourcesSkipped, &videosAdded, &errorMessage, &startedAt,
		&completedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(sequence, configName, settingsPath)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetCounts(sourcesTotal, sourcesCompleted, sourcesSkipped, videosAdded)
	run.SetStartedAt(startedAt)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}

	return run, nil
}
