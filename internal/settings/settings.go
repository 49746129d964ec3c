// package settings implements the versioned JSON settings document that each
// auto-adder persists its reconciliation progress to.
//
// A settings file pairs one target playlist with any number of channel and
// playlist sources, each carrying an ordered newest-first list of video IDs
// already reconciled. Documents are written atomically so a crash never
// leaves a partial file behind.
package settings

import (
	"fmt"

	"github.com/sondrake/playfeed/internal/shared"
)

// DefaultRetentionCap is the channel seen-list length used when no override
// is configured.
const DefaultRetentionCap = 50

// GlobalSettings applies to every source in a settings file unless a source
// carries its own override.
type GlobalSettings struct {
	Name             string   `json:"name"`
	TargetPlaylistID string   `json:"target_playlist_id"`
	Selector         Selector `json:"selector"`
}

// ChannelEntry tracks reconciliation progress for a single channel source.
type ChannelEntry struct {
	DisplayName  string    `json:"channel_name"`
	SeenVideoIDs []string  `json:"seen_video_ids"`
	Selector     *Selector `json:"selector,omitempty"`
}

// PlaylistEntry tracks reconciliation progress for a single playlist source.
//
// Playlist seen-lists are unbounded: playlist membership never shrinks
// implicitly, so old entries stay relevant.
type PlaylistEntry struct {
	DisplayName  string    `json:"playlist_name"`
	SeenVideoIDs []string  `json:"seen_video_ids"`
	Selector     *Selector `json:"selector,omitempty"`
}

// Settings is the root of a settings document, keyed by upstream IDs.
type Settings struct {
	Global    GlobalSettings            `json:"global_settings"`
	Channels  map[string]*ChannelEntry  `json:"channels"`
	Playlists map[string]*PlaylistEntry `json:"playlists"`
}

// HasSeen reports whether videoID is already recorded for the channel.
func (e *ChannelEntry) HasSeen(videoID string) bool {
	return containsID(e.SeenVideoIDs, videoID)
}

// MarkSeen prepends videoID to the channel's seen-list and truncates it to
// cap entries. A cap of zero or less leaves the list unbounded.
func (e *ChannelEntry) MarkSeen(videoID string, cap int) {
	e.SeenVideoIDs = prependID(e.SeenVideoIDs, videoID)
	if cap > 0 && len(e.SeenVideoIDs) > cap {
		e.SeenVideoIDs = e.SeenVideoIDs[:cap]
	}
}

// HasSeen reports whether videoID is already recorded for the playlist.
func (e *PlaylistEntry) HasSeen(videoID string) bool {
	return containsID(e.SeenVideoIDs, videoID)
}

// MarkSeen prepends videoID to the playlist's seen-list. Playlist seen-lists
// carry no retention cap.
func (e *PlaylistEntry) MarkSeen(videoID string) {
	e.SeenVideoIDs = prependID(e.SeenVideoIDs, videoID)
}

// Validate checks the document against the schema invariants: parseable
// selectors, a target playlist, and duplicate-free seen-lists.
func (s *Settings) Validate() error {
	if s.Global.TargetPlaylistID == "" {
		return fmt.Errorf("%w: global target_playlist_id is empty", shared.ErrMalformedConfig)
	}
	if _, err := ParseChannelSelector(string(s.Global.Selector)); err != nil {
		if _, perr := ParsePlaylistSelector(string(s.Global.Selector)); perr != nil {
			return fmt.Errorf("%w: global selector %q", shared.ErrMalformedConfig, s.Global.Selector)
		}
	}

	for id, entry := range s.Channels {
		if entry == nil {
			return fmt.Errorf("%w: channel %s has no entry", shared.ErrMalformedConfig, id)
		}
		if entry.Selector != nil && !ValidChannelSelector(*entry.Selector) {
			return fmt.Errorf("%w: channel %s selector %q", shared.ErrMalformedConfig, id, *entry.Selector)
		}
		if dup := firstDuplicate(entry.SeenVideoIDs); dup != "" {
			return fmt.Errorf("%w: channel %s seen list contains duplicate %s", shared.ErrMalformedConfig, id, dup)
		}
	}

	for id, entry := range s.Playlists {
		if entry == nil {
			return fmt.Errorf("%w: playlist %s has no entry", shared.ErrMalformedConfig, id)
		}
		if entry.Selector != nil && !ValidPlaylistSelector(*entry.Selector) {
			return fmt.Errorf("%w: playlist %s selector %q", shared.ErrMalformedConfig, id, *entry.Selector)
		}
		if dup := firstDuplicate(entry.SeenVideoIDs); dup != "" {
			return fmt.Errorf("%w: playlist %s seen list contains duplicate %s", shared.ErrMalformedConfig, id, dup)
		}
	}

	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// prependID puts id at index 0, dropping any stale occurrence further down
// so the newest-first, duplicate-free invariants hold.
func prependID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]bool, len(ids))
	for _, v := range ids {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}
