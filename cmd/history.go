package main

import (
	"context"
	"time"

	"github.com/sondrake/playfeed/internal/models"
	"github.com/sondrake/playfeed/internal/repositories"
	"github.com/urfave/cli/v3"
)

type runSummaryOut struct {
	ID               string     `json:"id"`
	Sequence         int        `json:"sequence"`
	ConfigName       string     `json:"config_name"`
	Status           string     `json:"status"`
	SourcesTotal     int        `json:"sources_total"`
	SourcesCompleted int        `json:"sources_completed"`
	SourcesSkipped   int        `json:"sources_skipped"`
	VideosAdded      int        `json:"videos_added"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type additionOut struct {
	SourceID   string    `json:"source_id"`
	SourceKind string    `json:"source_kind"`
	VideoID    string    `json:"video_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
}

func runOut(run *models.Run) runSummaryOut {
	return runSummaryOut{
		ID:               run.ID(),
		Sequence:         run.Sequence(),
		ConfigName:       run.ConfigName(),
		Status:           string(run.Status()),
		SourcesTotal:     run.SourcesTotal(),
		SourcesCompleted: run.SourcesCompleted(),
		SourcesSkipped:   run.SourcesSkipped(),
		VideosAdded:      run.VideosAdded(),
		ErrorMessage:     run.ErrorMessage(),
		StartedAt:        run.StartedAt(),
		CompletedAt:      run.CompletedAt(),
	}
}

// History shows recent runs, or the additions of a single run with --id.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	if id := cmd.String("id"); id != "" {
		return r.historyDetail(repo, id, cmd.Bool("json"))
	}

	runs, err := repo.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]runSummaryOut, 0, len(runs))
		for _, run := range runs {
			out = append(out, runOut(run))
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet\n")
		return nil
	}

	r.writePlainHeader("Recent runs")
	for _, run := range runs {
		r.writePlain("#%d  %s  %s  [%s]\n", run.Sequence(), run.StartedAt().Format(time.DateTime), run.ConfigName(), run.Status())
		r.writePlain("  %d/%d sources, %d skipped, %d videos added  (id %s)\n",
			run.SourcesCompleted(), run.SourcesTotal(), run.SourcesSkipped(), run.VideosAdded(), run.ID())
		if run.ErrorMessage() != "" {
			r.writePlain("  error: %s\n", run.ErrorMessage())
		}
	}
	return nil
}

func (r *Runner) historyDetail(repo *repositories.RunRepository, id string, useJSON bool) error {
	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	additions, err := repo.Additions(id)
	if err != nil {
		return err
	}

	if useJSON {
		out := struct {
			Run       runSummaryOut `json:"run"`
			Additions []additionOut `json:"additions"`
		}{Run: runOut(run)}
		for _, a := range additions {
			out.Additions = append(out.Additions, additionOut{
				SourceID:   a.SourceID(),
				SourceKind: a.SourceKind(),
				VideoID:    a.VideoID(),
				Position:   a.Position(),
				AddedAt:    a.AddedAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Run " + run.ID())
	r.writePlain("%s  [%s]  %d videos added\n", run.ConfigName(), run.Status(), run.VideosAdded())
	for _, a := range additions {
		r.writePlain("  %s  %s (%s %s)\n", a.AddedAt().Format(time.DateTime), a.VideoID(), a.SourceKind(), a.SourceID())
	}
	return nil
}
