package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/sondrake/playfeed/internal/services"
	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
)

type mockIterator struct {
	ids []string
	idx int
	cur string
	err error
}

func (m *mockIterator) Next(ctx context.Context) bool {
	if m.idx >= len(m.ids) {
		return false
	}
	m.cur = m.ids[m.idx]
	m.idx++
	return true
}

func (m *mockIterator) VideoID() string { return m.cur }

func (m *mockIterator) Err() error {
	if m.idx >= len(m.ids) {
		return m.err
	}
	return nil
}

type mockSource struct {
	feeds      map[string][]string // newest-first feed per source ID
	feedErr    map[string]error    // error opening the feed
	iterErr    map[string]error    // error surfaced after the feed drains
	target     []string            // video IDs appended, in order
	failAppend func(videoID string) bool
	filters    map[string]settings.Selector // filter seen per channel
}

func newMockSource() *mockSource {
	return &mockSource{
		feeds:   make(map[string][]string),
		feedErr: make(map[string]error),
		iterErr: make(map[string]error),
		filters: make(map[string]settings.Selector),
	}
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) ChannelUploads(ctx context.Context, channelID string, filter settings.Selector) (services.VideoIterator, error) {
	m.filters[channelID] = filter
	if err := m.feedErr[channelID]; err != nil {
		return nil, err
	}
	return &mockIterator{ids: m.feeds[channelID], err: m.iterErr[channelID]}, nil
}

func (m *mockSource) PlaylistItems(ctx context.Context, playlistID string) (services.VideoIterator, error) {
	if err := m.feedErr[playlistID]; err != nil {
		return nil, err
	}
	return &mockIterator{ids: m.feeds[playlistID], err: m.iterErr[playlistID]}, nil
}

func (m *mockSource) AppendToPlaylist(ctx context.Context, playlistID, videoID string) bool {
	if m.failAppend != nil && m.failAppend(videoID) {
		return false
	}
	m.target = append(m.target, videoID)
	return true
}

type recordedAddition struct {
	sourceID   string
	sourceKind string
	videoID    string
	position   int
}

type mockRecorder struct {
	runID     string
	additions []recordedAddition
	summary   RunSummary
	runErr    error
	finished  bool
}

func (r *mockRecorder) BeginRun(configName, settingsPath string) (string, error) {
	r.runID = "run-1"
	return r.runID, nil
}

func (r *mockRecorder) RecordAddition(runID, sourceID, sourceKind, videoID string, position int) error {
	r.additions = append(r.additions, recordedAddition{sourceID, sourceKind, videoID, position})
	return nil
}

func (r *mockRecorder) FinishRun(runID string, summary RunSummary, runErr error) error {
	r.summary = summary
	r.runErr = runErr
	r.finished = true
	return nil
}

func baseSettings() *settings.Settings {
	return &settings.Settings{
		Global: settings.GlobalSettings{
			Name:             "test-adder",
			TargetPlaylistID: "PLtarget",
			Selector:         settings.SelectorAllVideos,
		},
		Channels:  make(map[string]*settings.ChannelEntry),
		Playlists: make(map[string]*settings.PlaylistEntry),
	}
}

func writeSettings(t *testing.T, doc *settings.Settings) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.json")
	if err := settings.Save(path, doc); err != nil {
		t.Fatalf("failed to write settings fixture: %v", err)
	}
	return path
}

func newTestEngine(src *mockSource) *AutoAddEngine {
	return NewAutoAddEngine(src, settings.DefaultRetentionCap, shared.NewLogger(io.Discard))
}

func feedID(i int) string {
	return fmt.Sprintf("vid%03d", i)
}

func TestProcessChannels(t *testing.T) {
	t.Run("OrderPreservation", func(t *testing.T) {
		// Upstream [v3, v2, v1] newest-first with v1 seen: the target
		// must receive v2 then v3.
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{
			DisplayName:  "Channel A",
			SeenVideoIDs: []string{"v1"},
		}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["UCa"] = []string{"v3", "v2", "v1"}

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(src.target) != 2 || src.target[0] != "v2" || src.target[1] != "v3" {
			t.Errorf("expected target [v2 v3], got %v", src.target)
		}

		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		ids := reloaded.Channels["UCa"].SeenVideoIDs
		if len(ids) != 3 || ids[0] != "v3" || ids[1] != "v2" || ids[2] != "v1" {
			t.Errorf("expected seen list [v3 v2 v1], got %v", ids)
		}
	})

	t.Run("Idempotence", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{
			DisplayName:  "Channel A",
			SeenVideoIDs: []string{"v3", "v2", "v1"},
		}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["UCa"] = []string{"v3", "v2", "v1"}

		engine := newTestEngine(src)
		for i := 0; i < 2; i++ {
			if err := engine.Process(context.Background(), path, nil); err != nil {
				t.Fatalf("run %d: unexpected error: %v", i, err)
			}
		}

		if len(src.target) != 0 {
			t.Errorf("expected no appends, got %v", src.target)
		}
	})

	t.Run("SelectorOverride", func(t *testing.T) {
		override := settings.SelectorShortsOnly
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Shorts", Selector: &override}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["UCa"] = []string{"s1"}

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if src.filters["UCa"] != settings.SelectorShortsOnly {
			t.Errorf("expected shorts_only filter, got %s", src.filters["UCa"])
		}
	})

	t.Run("RetentionCap", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Channel A"}
		path := writeSettings(t, doc)

		feed := make([]string, 0, 60)
		for i := 59; i >= 0; i-- {
			feed = append(feed, feedID(i))
		}
		src := newMockSource()
		src.feeds["UCa"] = feed

		engine := NewAutoAddEngine(src, 10, shared.NewLogger(io.Discard))
		if err := engine.Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(src.target) != 60 {
			t.Fatalf("expected 60 appends, got %d", len(src.target))
		}

		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		ids := reloaded.Channels["UCa"].SeenVideoIDs
		if len(ids) != 10 {
			t.Fatalf("expected seen list capped at 10, got %d", len(ids))
		}
		if ids[0] != feedID(59) || ids[9] != feedID(50) {
			t.Errorf("expected newest ten retained, got %v", ids)
		}
	})

	t.Run("AppendFailureHaltsBatch", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{
			DisplayName:  "Channel A",
			SeenVideoIDs: []string{"v1"},
		}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["UCa"] = []string{"v4", "v3", "v2", "v1"}
		src.failAppend = func(videoID string) bool { return videoID == "v3" }

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// v2 lands, v3 fails, v4 must not be attempted.
		if len(src.target) != 1 || src.target[0] != "v2" {
			t.Errorf("expected target [v2], got %v", src.target)
		}

		// Final write is gated on full-batch success, and no checkpoint
		// fired this early in the batch, so the file stays untouched.
		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		ids := reloaded.Channels["UCa"].SeenVideoIDs
		if len(ids) != 1 || ids[0] != "v1" {
			t.Errorf("expected seen list unchanged [v1], got %v", ids)
		}
	})

	t.Run("CheckpointCadence", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Channel A"}
		path := writeSettings(t, doc)

		feed := make([]string, 0, 40)
		for i := 39; i >= 0; i-- {
			feed = append(feed, feedID(i))
		}
		src := newMockSource()
		src.feeds["UCa"] = feed
		// The 36th append (index 35) fails: everything up to the index-30
		// checkpoint must survive on disk, nothing after it.
		src.failAppend = func(videoID string) bool { return videoID == feedID(35) }

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(src.target) != 35 {
			t.Fatalf("expected 35 appends before the halt, got %d", len(src.target))
		}

		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		ids := reloaded.Channels["UCa"].SeenVideoIDs
		if len(ids) != 31 {
			t.Fatalf("expected 31 IDs persisted at the last checkpoint, got %d", len(ids))
		}
		if ids[0] != feedID(30) || ids[30] != feedID(0) {
			t.Errorf("expected IDs 30..0 newest-first, got head %s tail %s", ids[0], ids[30])
		}
	})

	t.Run("TransientSourceSkipped", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCbroken"] = &settings.ChannelEntry{DisplayName: "Broken"}
		doc.Channels["UCok"] = &settings.ChannelEntry{DisplayName: "Working"}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feedErr["UCbroken"] = fmt.Errorf("%w: gone", shared.ErrTransientSource)
		src.feeds["UCok"] = []string{"v1"}

		progress := make(chan ProgressUpdate, 64)
		if err := newTestEngine(src).Process(context.Background(), path, progress); err != nil {
			t.Fatalf("expected transient failure to be absorbed, got %v", err)
		}
		close(progress)

		if len(src.target) != 1 || src.target[0] != "v1" {
			t.Errorf("expected the healthy source to still run, got %v", src.target)
		}

		skipped := false
		for update := range progress {
			if update.Phase == SourceSkipped {
				skipped = true
			}
		}
		if !skipped {
			t.Error("expected a source_skipped progress update")
		}
	})

	t.Run("FatalAuthAbortsRun", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "First"}
		doc.Channels["UCb"] = &settings.ChannelEntry{DisplayName: "Second"}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feedErr["UCa"] = fmt.Errorf("%w: token revoked", shared.ErrFatalAuth)
		src.feeds["UCb"] = []string{"v1"}

		err := newTestEngine(src).Process(context.Background(), path, nil)
		if !errors.Is(err, shared.ErrFatalAuth) {
			t.Fatalf("expected ErrFatalAuth, got %v", err)
		}
		if len(src.target) != 0 {
			t.Errorf("expected no appends after auth failure, got %v", src.target)
		}
	})

	t.Run("Cancellation", func(t *testing.T) {
		doc := baseSettings()
		doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Channel A"}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["UCa"] = []string{"v2", "v1"}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTestEngine(src).Process(ctx, path, nil)
		if !errors.Is(err, shared.ErrRunCancelled) {
			t.Fatalf("expected ErrRunCancelled, got %v", err)
		}
		if len(src.target) != 0 {
			t.Errorf("expected no appends after cancellation, got %v", src.target)
		}
	})

	t.Run("MalformedSettings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.json")

		err := newTestEngine(newMockSource()).Process(context.Background(), path, nil)
		if !errors.Is(err, shared.ErrMalformedConfig) {
			t.Fatalf("expected ErrMalformedConfig, got %v", err)
		}
	})
}

func TestProcessPlaylists(t *testing.T) {
	t.Run("BoundaryScan", func(t *testing.T) {
		selector := settings.SelectorNewEntriesFromTop
		doc := baseSettings()
		doc.Playlists["PLsrc"] = &settings.PlaylistEntry{
			DisplayName:  "Watched",
			SeenVideoIDs: []string{"v5", "v4"},
			Selector:     &selector,
		}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["PLsrc"] = []string{"v7", "v6", "v5", "v4", "v3"}

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// v5 is the boundary: v3 below it is never considered.
		if len(src.target) != 2 || src.target[0] != "v6" || src.target[1] != "v7" {
			t.Errorf("expected target [v6 v7], got %v", src.target)
		}
	})

	t.Run("AllVideosMembershipDiff", func(t *testing.T) {
		selector := settings.SelectorAllVideos
		doc := baseSettings()
		doc.Playlists["PLsrc"] = &settings.PlaylistEntry{
			DisplayName:  "Full mirror",
			SeenVideoIDs: []string{"v4"},
			Selector:     &selector,
		}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["PLsrc"] = []string{"v5", "v4", "v3"}

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Unseen items below the first seen ID still count.
		if len(src.target) != 2 || src.target[0] != "v3" || src.target[1] != "v5" {
			t.Errorf("expected target [v3 v5], got %v", src.target)
		}
	})

	t.Run("SeenListUnbounded", func(t *testing.T) {
		doc := baseSettings()
		doc.Playlists["PLsrc"] = &settings.PlaylistEntry{DisplayName: "Big"}
		path := writeSettings(t, doc)

		feed := make([]string, 0, 120)
		for i := 119; i >= 0; i-- {
			feed = append(feed, feedID(i))
		}
		src := newMockSource()
		src.feeds["PLsrc"] = feed

		engine := NewAutoAddEngine(src, 10, shared.NewLogger(io.Discard))
		if err := engine.Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		if got := len(reloaded.Playlists["PLsrc"].SeenVideoIDs); got != 120 {
			t.Errorf("expected 120 IDs retained, got %d", got)
		}
	})

	t.Run("FinalWriteUnconditional", func(t *testing.T) {
		doc := baseSettings()
		doc.Playlists["PLsrc"] = &settings.PlaylistEntry{DisplayName: "Partial"}
		path := writeSettings(t, doc)

		src := newMockSource()
		src.feeds["PLsrc"] = []string{"v3", "v2", "v1"}
		src.failAppend = func(videoID string) bool { return videoID == "v2" }

		if err := newTestEngine(src).Process(context.Background(), path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// v1 lands, v2 fails, the batch halts; unlike channels the file
		// is still written with v1 marked.
		reloaded, err := settings.Load(path)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		ids := reloaded.Playlists["PLsrc"].SeenVideoIDs
		if len(ids) != 1 || ids[0] != "v1" {
			t.Errorf("expected seen list [v1], got %v", ids)
		}
	})
}

func TestProcessRecorder(t *testing.T) {
	doc := baseSettings()
	doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Channel A"}
	doc.Playlists["PLsrc"] = &settings.PlaylistEntry{DisplayName: "Watched"}
	path := writeSettings(t, doc)

	src := newMockSource()
	src.feeds["UCa"] = []string{"c2", "c1"}
	src.feeds["PLsrc"] = []string{"p1"}

	rec := &mockRecorder{}
	engine := newTestEngine(src)
	engine.SetRecorder(rec)

	if err := engine.Process(context.Background(), path, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.finished {
		t.Fatal("expected the run record to be closed")
	}
	if rec.runErr != nil {
		t.Errorf("expected clean run, got %v", rec.runErr)
	}
	if rec.summary.SourcesTotal != 2 || rec.summary.SourcesCompleted != 2 || rec.summary.VideosAdded != 3 {
		t.Errorf("unexpected summary: %+v", rec.summary)
	}

	if len(rec.additions) != 3 {
		t.Fatalf("expected 3 recorded additions, got %d", len(rec.additions))
	}
	first := rec.additions[0]
	if first.sourceID != "UCa" || first.sourceKind != "channel" || first.videoID != "c1" || first.position != 0 {
		t.Errorf("unexpected first addition: %+v", first)
	}
	last := rec.additions[2]
	if last.sourceID != "PLsrc" || last.sourceKind != "playlist" || last.videoID != "p1" {
		t.Errorf("unexpected last addition: %+v", last)
	}
}

func TestProcessProgress(t *testing.T) {
	doc := baseSettings()
	doc.Channels["UCa"] = &settings.ChannelEntry{DisplayName: "Channel A"}
	path := writeSettings(t, doc)

	src := newMockSource()
	src.feeds["UCa"] = []string{"v1"}

	progress := make(chan ProgressUpdate, 64)
	if err := newTestEngine(src).Process(context.Background(), path, progress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progress)

	phases := make(map[Phase]bool)
	for update := range progress {
		phases[update.Phase] = true
	}

	for _, want := range []Phase{Initializing, SourceStart, PullFeed, AppendVideo, SourceComplete, RunComplete} {
		if !phases[want] {
			t.Errorf("expected a %s update", want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		Initializing:   "initializing",
		SourceStart:    "source_start",
		PullFeed:       "pull_feed",
		AppendVideo:    "append_video",
		Checkpoint:     "checkpoint",
		SourceSkipped:  "source_skipped",
		SourceComplete: "source_complete",
		RunComplete:    "run_complete",
	}

	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String(): expected %s, got %s", phase, want, got)
		}
	}
}
