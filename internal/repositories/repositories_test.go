package repositories

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/sondrake/playfeed/internal/models"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/sondrake/playfeed/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	first, err := NextSequence(db, "runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected sequence to increment from %d, got %d", first, second)
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("BeginRun", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}
		if id == "" {
			t.Fatal("run ID should be set after creation")
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.ConfigName() != "test-adder" {
			t.Errorf("expected config name test-adder, got %s", run.ConfigName())
		}
		if run.Status() != models.RunStatusRunning {
			t.Errorf("expected running status, got %s", run.Status())
		}
		if run.CompletedAt() != nil {
			t.Error("expected no completion time for a running run")
		}
	})

	t.Run("FinishRunCompleted", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		summary := tasks.RunSummary{SourcesTotal: 3, SourcesCompleted: 2, SourcesSkipped: 1, VideosAdded: 7}
		if err := repo.FinishRun(id, summary, nil); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Status() != models.RunStatusCompleted {
			t.Errorf("expected completed status, got %s", run.Status())
		}
		if run.VideosAdded() != 7 || run.SourcesSkipped() != 1 {
			t.Errorf("unexpected tallies: added=%d skipped=%d", run.VideosAdded(), run.SourcesSkipped())
		}
		if run.CompletedAt() == nil {
			t.Error("expected completion time to be set")
		}
	})

	t.Run("FinishRunFailed", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		runErr := fmt.Errorf("%w: token revoked", shared.ErrFatalAuth)
		if err := repo.FinishRun(id, tasks.RunSummary{SourcesTotal: 1}, runErr); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Status() != models.RunStatusFailed {
			t.Errorf("expected failed status, got %s", run.Status())
		}
		if run.ErrorMessage() == "" {
			t.Error("expected error message to be recorded")
		}
	})

	t.Run("FinishRunCancelled", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		runErr := fmt.Errorf("%w: context canceled", shared.ErrRunCancelled)
		if err := repo.FinishRun(id, tasks.RunSummary{}, runErr); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Status() != models.RunStatusCancelled {
			t.Errorf("expected cancelled status, got %s", run.Status())
		}
	})

	t.Run("FinishRunUnknownID", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		if err := repo.FinishRun("no-such-run", tasks.RunSummary{}, nil); err == nil {
			t.Error("expected an error for an unknown run ID")
		}
	})

	t.Run("Additions", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		for i, videoID := range []string{"v1", "v2", "v3"} {
			if err := repo.RecordAddition(id, "UCa", "channel", videoID, i); err != nil {
				t.Fatalf("failed to record addition: %v", err)
			}
		}

		additions, err := repo.Additions(id)
		if err != nil {
			t.Fatalf("failed to list additions: %v", err)
		}
		if len(additions) != 3 {
			t.Fatalf("expected 3 additions, got %d", len(additions))
		}
		if additions[0].VideoID() != "v1" || additions[2].VideoID() != "v3" {
			t.Errorf("expected additions in append order, got %s..%s",
				additions[0].VideoID(), additions[2].VideoID())
		}
		if additions[0].SourceKind() != "channel" {
			t.Errorf("expected channel source kind, got %s", additions[0].SourceKind())
		}
	})

	t.Run("RecordAdditionInvalidKind", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		id, err := repo.BeginRun("test-adder", "/configs/feeds.json")
		if err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		if err := repo.RecordAddition(id, "UCa", "feed", "v1", 0); err == nil {
			t.Error("expected validation error for unknown source kind")
		}
	})

	t.Run("Recent", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)

		var ids []string
		for i := 0; i < 3; i++ {
			id, err := repo.BeginRun(fmt.Sprintf("adder-%d", i), "/configs/feeds.json")
			if err != nil {
				t.Fatalf("failed to begin run: %v", err)
			}
			ids = append(ids, id)
		}

		runs, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID() != ids[2] {
			t.Errorf("expected newest run first, got %s", runs[0].ConfigName())
		}
	})
}
