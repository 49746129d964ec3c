package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sondrake/playfeed/internal/repositories"
	"github.com/sondrake/playfeed/internal/services"
	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/sondrake/playfeed/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Run reconciles one settings file, or every file in the config
// directory when the argument is "all".
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	file := cmd.StringArg("file")
	if file == "" {
		return fmt.Errorf("%w: settings file name (or \"all\")", shared.ErrMissingArgument)
	}
	quiet := cmd.Bool("quiet")

	source, err := r.resolveSource(ctx)
	if err != nil {
		return err
	}

	engine := tasks.NewAutoAddEngine(source, r.retentionCap(), r.logger)

	if !cmd.Bool("no-history") {
		db, err := r.openDB()
		if err != nil {
			r.logger.Warn("run history unavailable", "error", err)
		} else {
			defer db.Close()
			engine.SetRecorder(repositories.NewRunRepository(db))
		}
	}

	if file == "all" {
		paths, err := settings.ListConfigs(r.config.AutoAdder.ConfigDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("%w: no settings files in %s", shared.ErrMissingConfig, r.config.AutoAdder.ConfigDir)
		}
		for _, path := range paths {
			err := r.runOne(ctx, engine, path, quiet)
			if errors.Is(err, shared.ErrMalformedConfig) {
				// Fatal for this file only; the rest still run.
				r.logger.Warn("skipping unreadable settings file", "settings", path, "error", err)
				r.writePlain("   ✗ skipped %s: %v\n", path, err)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	return r.runOne(ctx, engine, r.settingsPath(file), quiet)
}

// runOne executes the engine against a single settings file, rendering
// progress updates until the run finishes.
func (r *Runner) runOne(ctx context.Context, engine tasks.Engine, path string, quiet bool) error {
	r.logger.Info("starting reconciliation", "settings", path)
	r.writePlain("Reconciling %s...\n", path)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.SourceStart:
				r.writePlain("\n📺 %s\n", update.Message)
			case tasks.AppendVideo:
				if !quiet {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.SourceSkipped, tasks.SourceComplete:
				r.writePlain("   %s\n", update.Message)
			case tasks.RunComplete:
				r.writePlainln("%s", update.Message)
			}
		}
	}()

	err := engine.Process(ctx, path, progressCh)
	close(progressCh)
	<-done

	return err
}

// Create seeds a new settings file from the template.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	file := cmd.StringArg("file")
	if file == "" {
		return fmt.Errorf("%w: settings file name", shared.ErrMissingArgument)
	}

	selector, err := parseGlobalSelector(cmd.String("selector"))
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = strings.TrimSuffix(file, ".json")
	}
	target := services.NormalizePlaylistID(cmd.String("target"))

	path := r.settingsPath(file)
	if err := settings.Create(path, name, target, selector); err != nil {
		return err
	}

	r.logger.Info("settings file created", "path", path)
	r.writePlain("Created %s\n", path)
	r.writePlain("Add channels and playlists to the file, then run: playfeed run %s\n", file)
	return nil
}

// List enumerates the configured auto-adders.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	dir := r.config.AutoAdder.ConfigDir

	files, err := settings.ListConfigs(dir)
	if err != nil {
		return err
	}

	type configSummary struct {
		File      string `json:"file"`
		Name      string `json:"name"`
		Target    string `json:"target_playlist_id"`
		Channels  int    `json:"channels"`
		Playlists int    `json:"playlists"`
	}

	summaries := make([]configSummary, 0, len(files))
	for _, file := range files {
		summary := configSummary{File: file}
		doc, err := settings.Load(r.settingsPath(file))
		if err != nil {
			r.logger.Warn("skipping unreadable settings file", "file", file, "error", err)
			continue
		}
		summary.Name = doc.Global.Name
		summary.Target = doc.Global.TargetPlaylistID
		summary.Channels = len(doc.Channels)
		summary.Playlists = len(doc.Playlists)
		summaries = append(summaries, summary)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	if len(summaries) == 0 {
		r.writePlain("No auto-adders configured in %s\n", dir)
		r.writePlain("Create one with: playfeed create <file> --target <playlist>\n")
		return nil
	}

	r.writePlainHeader("Configured auto-adders")
	for _, s := range summaries {
		r.writePlain("%s  (%s)\n", s.Name, s.File)
		r.writePlain("  target: %s, %d channels, %d playlists\n", s.Target, s.Channels, s.Playlists)
	}
	return nil
}

// parseGlobalSelector accepts any channel or playlist selector for the
// global default; per-source overrides are validated against their own kind
// when the file is loaded.
func parseGlobalSelector(s string) (settings.Selector, error) {
	if sel, err := settings.ParseChannelSelector(s); err == nil {
		return sel, nil
	}
	return settings.ParsePlaylistSelector(s)
}
