// package tasks implements the reconciliation runs that keep target
// playlists in sync with their configured channel and playlist sources.
//
// The core abstraction is AutoAddEngine, which loads a settings file,
// diffs each source's upstream feed against the remembered seen-list,
// appends the new videos to the target playlist in upload order, and
// checkpoints progress back to disk as it goes. Operations emit progress
// updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/sondrake/playfeed/internal/services"
	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
)

// checkpointAfter and checkpointEvery control how often the settings file
// is persisted mid-batch: every checkpointEvery-th successful append once
// more than checkpointAfter appends have landed. Bounds data loss on a
// crash without writing the file after every single append.
const (
	checkpointAfter = 15
	checkpointEvery = 10
)

// RunSummary aggregates the outcome of one reconciliation run.
type RunSummary struct {
	SourcesTotal     int // Configured sources in the settings file
	SourcesCompleted int // Sources fully reconciled
	SourcesSkipped   int // Sources skipped on transient failure
	VideosAdded      int // Videos appended to the target playlist
}

// RunRecorder receives run lifecycle events for durable history. All
// methods are best-effort from the engine's perspective: recording
// failures are logged, never fatal for the run.
type RunRecorder interface {
	// BeginRun opens a history record and returns its ID.
	BeginRun(configName, settingsPath string) (string, error)

	// RecordAddition stores one successful append. sourceKind is
	// "channel" or "playlist"; position is the append's zero-based
	// index within the source's batch.
	RecordAddition(runID, sourceID, sourceKind, videoID string, position int) error

	// FinishRun closes the record with the final tallies. runErr is nil
	// when the run completed normally.
	FinishRun(runID string, summary RunSummary, runErr error) error
}

// Engine defines reconciliation operations over a settings file.
type Engine interface {
	// Process reconciles every source in the settings file at path,
	// appending newly published videos to the target playlist.
	Process(ctx context.Context, path string, progress chan<- ProgressUpdate) error
}

// AutoAddEngine implements Engine against an upstream video source.
type AutoAddEngine struct {
	source       services.Source
	retentionCap int
	logger       *log.Logger
	recorder     RunRecorder
}

// NewAutoAddEngine creates an engine. retentionCap bounds each channel's
// seen-list; zero or negative falls back to the default.
func NewAutoAddEngine(source services.Source, retentionCap int, logger *log.Logger) *AutoAddEngine {
	if retentionCap <= 0 {
		retentionCap = settings.DefaultRetentionCap
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &AutoAddEngine{
		source:       source,
		retentionCap: retentionCap,
		logger:       logger,
	}
}

// SetRecorder attaches a run history recorder. A nil recorder disables
// history.
func (e *AutoAddEngine) SetRecorder(rec RunRecorder) {
	e.recorder = rec
}

// Process reconciles the settings file at path. Channels are processed
// first, then playlists, each in sorted key order so runs are
// reproducible. Transient source failures skip the remainder of that
// source; authentication failures and cancellation abort the run.
func (e *AutoAddEngine) Process(ctx context.Context, path string, progress chan<- ProgressUpdate) error {
	doc, err := settings.Load(path)
	if err != nil {
		return err
	}

	runID := e.beginRun(doc.Global.Name, path)

	channelIDs := slices.Sorted(maps.Keys(doc.Channels))
	playlistIDs := slices.Sorted(maps.Keys(doc.Playlists))
	total := len(channelIDs) + len(playlistIDs)

	e.sendProgress(progress, initializingUpdate(total, doc.Global.Name))

	summary := RunSummary{SourcesTotal: total}
	step := 0

	for _, id := range channelIDs {
		step++
		entry := doc.Channels[id]
		src := channelSource{id, entry, settings.ResolveSelector(doc.Global.Selector, entry.Selector)}
		if err := e.processSource(ctx, path, doc, src, runID, step, total, &summary, progress); err != nil {
			e.finishRun(runID, summary, err)
			return err
		}
	}

	for _, id := range playlistIDs {
		step++
		entry := doc.Playlists[id]
		src := playlistSource{id, entry, settings.ResolvePlaylistSelector(doc.Global.Selector, entry.Selector)}
		if err := e.processSource(ctx, path, doc, src, runID, step, total, &summary, progress); err != nil {
			e.finishRun(runID, summary, err)
			return err
		}
	}

	e.sendProgress(progress, runCompleteUpdate(total, summary.VideosAdded))
	e.finishRun(runID, summary, nil)
	return nil
}

// processSource runs the per-source algorithm and folds the outcome into
// the run summary. Transient failures are absorbed here; anything else is
// returned to abort the run.
func (e *AutoAddEngine) processSource(ctx context.Context, path string, doc *settings.Settings, src reconcilable, runID string, step, total int, summary *RunSummary, progress chan<- ProgressUpdate) error {
	if err := runCancelled(ctx); err != nil {
		return err
	}

	e.sendProgress(progress, sourceStartUpdate(step, total, src.label()))

	added, err := e.reconcile(ctx, path, doc, src, runID, progress)
	summary.VideosAdded += added
	if err != nil {
		if errors.Is(err, shared.ErrTransientSource) {
			e.logger.Warn("skipping source", "source", src.label(), "error", err)
			summary.SourcesSkipped++
			e.sendProgress(progress, sourceSkippedUpdate(step, total, src.label(), err))
			return nil
		}
		return err
	}

	summary.SourcesCompleted++
	e.sendProgress(progress, sourceCompleteUpdate(step, total, src.label(), added))
	return nil
}

// reconcile diffs one source against its seen-list and appends the
// pending videos oldest-first.
//
// The upstream feed arrives newest-first; for boundary-scanned sources
// the first already-seen ID marks where last run left off, so pulling
// stops there. Appending the reversed pending list keeps playlist
// insertion order aligned with upload chronology. A failed append halts
// the batch: a later video must never be recorded as seen while an
// earlier one was not appended.
func (e *AutoAddEngine) reconcile(ctx context.Context, path string, doc *settings.Settings, src reconcilable, runID string, progress chan<- ProgressUpdate) (int, error) {
	e.sendProgress(progress, pullFeedUpdate(1, 1, src.label()))

	iter, err := src.feed(ctx, e.source)
	if err != nil {
		return 0, err
	}

	var pending []string
	for iter.Next(ctx) {
		if err := runCancelled(ctx); err != nil {
			return 0, err
		}
		id := iter.VideoID()
		if src.seen(id) {
			if src.boundaryScan() {
				break
			}
			continue
		}
		pending = append(pending, id)
	}
	if err := iter.Err(); err != nil {
		if cerr := runCancelled(ctx); cerr != nil {
			return 0, cerr
		}
		return 0, err
	}

	slices.Reverse(pending)

	added := 0
	allOK := true
	for i, id := range pending {
		if err := runCancelled(ctx); err != nil {
			return added, err
		}

		e.sendProgress(progress, appendVideoUpdate(i+1, len(pending), id))
		if !e.source.AppendToPlaylist(ctx, doc.Global.TargetPlaylistID, id) {
			e.logger.Warn("append failed, halting batch", "source", src.label(), "video", id)
			allOK = false
			break
		}

		src.markSeen(id, e.retentionCap)
		e.recordAddition(runID, src.id(), src.kind(), id, i)
		added++

		if i > checkpointAfter && i%checkpointEvery == 0 {
			if err := settings.Save(path, doc); err != nil {
				return added, fmt.Errorf("persisting checkpoint: %w", err)
			}
			e.sendProgress(progress, checkpointUpdate(i+1, len(pending)))
		}
	}

	// Channels gate the final write on full-batch success so the
	// seen-list cannot advance past a video that never landed; the
	// truncated list would otherwise forget the gap. Playlist
	// seen-lists are unbounded, and their final write has always been
	// unconditional.
	if allOK || !src.gateFinalWrite() {
		if err := settings.Save(path, doc); err != nil {
			return added, fmt.Errorf("persisting source result: %w", err)
		}
	}

	return added, nil
}

// sendProgress sends a progress update through the channel without blocking.
func (e *AutoAddEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

func (e *AutoAddEngine) beginRun(configName, path string) string {
	if e.recorder == nil {
		return ""
	}
	id, err := e.recorder.BeginRun(configName, path)
	if err != nil {
		e.logger.Warn("failed to open run history record", "error", err)
		return ""
	}
	return id
}

func (e *AutoAddEngine) recordAddition(runID, sourceID, sourceKind, videoID string, position int) {
	if e.recorder == nil || runID == "" {
		return
	}
	if err := e.recorder.RecordAddition(runID, sourceID, sourceKind, videoID, position); err != nil {
		e.logger.Warn("failed to record addition", "video", videoID, "error", err)
	}
}

func (e *AutoAddEngine) finishRun(runID string, summary RunSummary, runErr error) {
	if e.recorder == nil || runID == "" {
		return
	}
	if err := e.recorder.FinishRun(runID, summary, runErr); err != nil {
		e.logger.Warn("failed to close run history record", "error", err)
	}
}

func runCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRunCancelled, err)
	}
	return nil
}

// reconcilable abstracts the per-kind differences between channel and
// playlist sources: feed selection, boundary rule, retention, and the
// final-write gate.
type reconcilable interface {
	id() string
	kind() string
	label() string
	feed(ctx context.Context, src services.Source) (services.VideoIterator, error)
	seen(videoID string) bool
	markSeen(videoID string, cap int)
	boundaryScan() bool
	gateFinalWrite() bool
}

type channelSource struct {
	channelID string
	entry     *settings.ChannelEntry
	filter    settings.Selector
}

func (c channelSource) id() string    { return c.channelID }
func (c channelSource) kind() string  { return "channel" }
func (c channelSource) label() string { return c.entry.DisplayName }

func (c channelSource) feed(ctx context.Context, src services.Source) (services.VideoIterator, error) {
	return src.ChannelUploads(ctx, c.channelID, c.filter)
}

func (c channelSource) seen(videoID string) bool { return c.entry.HasSeen(videoID) }

func (c channelSource) markSeen(videoID string, cap int) { c.entry.MarkSeen(videoID, cap) }

// Channel feeds are append-only at the head, so the first seen ID is
// always the reconciliation boundary.
func (c channelSource) boundaryScan() bool { return true }

func (c channelSource) gateFinalWrite() bool { return true }

type playlistSource struct {
	playlistID string
	entry      *settings.PlaylistEntry
	selector   settings.Selector
}

func (p playlistSource) id() string    { return p.playlistID }
func (p playlistSource) kind() string  { return "playlist" }
func (p playlistSource) label() string { return p.entry.DisplayName }

func (p playlistSource) feed(ctx context.Context, src services.Source) (services.VideoIterator, error) {
	return src.PlaylistItems(ctx, p.playlistID)
}

func (p playlistSource) seen(videoID string) bool { return p.entry.HasSeen(videoID) }

func (p playlistSource) markSeen(videoID string, _ int) { p.entry.MarkSeen(videoID) }

// new_entries_from_the_top stops at the boundary like a channel feed;
// all_videos diffs full membership, so every item is inspected.
func (p playlistSource) boundaryScan() bool { return p.selector == settings.SelectorNewEntriesFromTop }

func (p playlistSource) gateFinalWrite() bool { return false }
