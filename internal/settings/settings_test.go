package settings

import (
	"errors"
	"testing"

	"github.com/sondrake/playfeed/internal/shared"
)

func TestSelectors(t *testing.T) {
	t.Run("ParseChannelSelector", func(t *testing.T) {
		for _, valid := range []string{"all_videos", "full_videos_only", "livestreams_only", "shorts_only"} {
			if _, err := ParseChannelSelector(valid); err != nil {
				t.Errorf("expected %q to parse, got %v", valid, err)
			}
		}

		for _, invalid := range []string{"", "new_entries_from_the_top", "All_Videos", "everything"} {
			_, err := ParseChannelSelector(invalid)
			if !errors.Is(err, shared.ErrInvalidSelector) {
				t.Errorf("expected ErrInvalidSelector for %q, got %v", invalid, err)
			}
		}
	})

	t.Run("ParsePlaylistSelector", func(t *testing.T) {
		for _, valid := range []string{"all_videos", "new_entries_from_the_top"} {
			if _, err := ParsePlaylistSelector(valid); err != nil {
				t.Errorf("expected %q to parse, got %v", valid, err)
			}
		}

		_, err := ParsePlaylistSelector("shorts_only")
		if !errors.Is(err, shared.ErrInvalidSelector) {
			t.Errorf("expected ErrInvalidSelector for shorts_only, got %v", err)
		}
	})

	t.Run("ResolveSelector", func(t *testing.T) {
		override := SelectorShortsOnly

		if got := ResolveSelector(SelectorAllVideos, &override); got != SelectorShortsOnly {
			t.Errorf("expected override to win, got %s", got)
		}
		if got := ResolveSelector(SelectorAllVideos, nil); got != SelectorAllVideos {
			t.Errorf("expected global default, got %s", got)
		}
	})

	t.Run("ResolvePlaylistSelector ChannelOnlyGlobal", func(t *testing.T) {
		if got := ResolvePlaylistSelector(SelectorFullVideosOnly, nil); got != SelectorNewEntriesFromTop {
			t.Errorf("expected new_entries_from_the_top fallback, got %s", got)
		}
		if got := ResolvePlaylistSelector(SelectorAllVideos, nil); got != SelectorAllVideos {
			t.Errorf("expected all_videos to pass through, got %s", got)
		}
	})
}

func TestChannelEntry(t *testing.T) {
	t.Run("MarkSeen Prepends", func(t *testing.T) {
		entry := &ChannelEntry{SeenVideoIDs: []string{"v2", "v1"}}
		entry.MarkSeen("v3", 50)

		want := []string{"v3", "v2", "v1"}
		assertIDs(t, entry.SeenVideoIDs, want)
	})

	t.Run("MarkSeen Truncates To Cap", func(t *testing.T) {
		entry := &ChannelEntry{}
		for i := 0; i < 50; i++ {
			entry.MarkSeen(videoID(i), 50)
		}
		for i := 50; i < 55; i++ {
			entry.MarkSeen(videoID(i), 50)
		}

		if len(entry.SeenVideoIDs) != 50 {
			t.Fatalf("expected seen list capped at 50, got %d", len(entry.SeenVideoIDs))
		}
		if entry.SeenVideoIDs[0] != videoID(54) {
			t.Errorf("expected newest entry at index 0, got %s", entry.SeenVideoIDs[0])
		}
		// The five oldest of the original fifty are dropped.
		if entry.HasSeen(videoID(4)) {
			t.Error("expected oldest entries to be dropped")
		}
		if !entry.HasSeen(videoID(5)) {
			t.Error("expected the 45 most recent previous entries to survive")
		}
	})

	t.Run("MarkSeen Deduplicates", func(t *testing.T) {
		entry := &ChannelEntry{SeenVideoIDs: []string{"v2", "v1"}}
		entry.MarkSeen("v1", 50)

		assertIDs(t, entry.SeenVideoIDs, []string{"v1", "v2"})
	})
}

func TestPlaylistEntry(t *testing.T) {
	t.Run("MarkSeen Unbounded", func(t *testing.T) {
		entry := &PlaylistEntry{}
		for i := 0; i < 120; i++ {
			entry.MarkSeen(videoID(i))
		}

		if len(entry.SeenVideoIDs) != 120 {
			t.Errorf("expected unbounded playlist seen list, got %d entries", len(entry.SeenVideoIDs))
		}
	})
}

func TestSettingsValidate(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Global: GlobalSettings{
				Name:             "test",
				TargetPlaylistID: "PLtarget",
				Selector:         SelectorAllVideos,
			},
			Channels:  map[string]*ChannelEntry{},
			Playlists: map[string]*PlaylistEntry{},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("expected valid settings, got %v", err)
		}
	})

	t.Run("MissingTarget", func(t *testing.T) {
		s := valid()
		s.Global.TargetPlaylistID = ""
		if err := s.Validate(); !errors.Is(err, shared.ErrMalformedConfig) {
			t.Errorf("expected ErrMalformedConfig, got %v", err)
		}
	})

	t.Run("BadGlobalSelector", func(t *testing.T) {
		s := valid()
		s.Global.Selector = "whatever"
		if err := s.Validate(); !errors.Is(err, shared.ErrMalformedConfig) {
			t.Errorf("expected ErrMalformedConfig, got %v", err)
		}
	})

	t.Run("BadChannelOverride", func(t *testing.T) {
		s := valid()
		bad := SelectorNewEntriesFromTop
		s.Channels["UCabc"] = &ChannelEntry{DisplayName: "abc", Selector: &bad}
		if err := s.Validate(); !errors.Is(err, shared.ErrMalformedConfig) {
			t.Errorf("expected ErrMalformedConfig, got %v", err)
		}
	})

	t.Run("DuplicateSeenIDs", func(t *testing.T) {
		s := valid()
		s.Channels["UCabc"] = &ChannelEntry{DisplayName: "abc", SeenVideoIDs: []string{"v1", "v2", "v1"}}
		if err := s.Validate(); !errors.Is(err, shared.ErrMalformedConfig) {
			t.Errorf("expected ErrMalformedConfig, got %v", err)
		}
	})
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d IDs, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func videoID(i int) string {
	return "vid" + string(rune('A'+i/26)) + string(rune('a'+i%26))
}
