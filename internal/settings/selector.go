package settings

import (
	"fmt"

	"github.com/sondrake/playfeed/internal/shared"
)

// Selector controls which upstream sub-feed is consulted for a source and
// how the boundary between seen and new videos is detected.
type Selector string

const (
	// SelectorAllVideos consults the full upload feed (channels) or the
	// complete item listing (playlists).
	SelectorAllVideos Selector = "all_videos"
	// SelectorFullVideosOnly consults the channel's full-length uploads sub-feed.
	SelectorFullVideosOnly Selector = "full_videos_only"
	// SelectorLivestreamsOnly consults the channel's livestream sub-feed.
	SelectorLivestreamsOnly Selector = "livestreams_only"
	// SelectorShortsOnly consults the channel's shorts sub-feed.
	SelectorShortsOnly Selector = "shorts_only"
	// SelectorNewEntriesFromTop scans a playlist top-down and stops at the
	// first already-seen entry.
	SelectorNewEntriesFromTop Selector = "new_entries_from_the_top"
)

var channelSelectors = map[Selector]bool{
	SelectorAllVideos:       true,
	SelectorFullVideosOnly:  true,
	SelectorLivestreamsOnly: true,
	SelectorShortsOnly:      true,
}

var playlistSelectors = map[Selector]bool{
	SelectorAllVideos:         true,
	SelectorNewEntriesFromTop: true,
}

// ParseChannelSelector validates s as a channel selector literal.
func ParseChannelSelector(s string) (Selector, error) {
	sel := Selector(s)
	if !channelSelectors[sel] {
		return "", fmt.Errorf("%w: %q is not a channel selector", shared.ErrInvalidSelector, s)
	}
	return sel, nil
}

// ParsePlaylistSelector validates s as a playlist selector literal.
func ParsePlaylistSelector(s string) (Selector, error) {
	sel := Selector(s)
	if !playlistSelectors[sel] {
		return "", fmt.Errorf("%w: %q is not a playlist selector", shared.ErrInvalidSelector, s)
	}
	return sel, nil
}

// ValidChannelSelector reports whether sel may be applied to a channel source.
func ValidChannelSelector(sel Selector) bool {
	return channelSelectors[sel]
}

// ValidPlaylistSelector reports whether sel may be applied to a playlist source.
func ValidPlaylistSelector(sel Selector) bool {
	return playlistSelectors[sel]
}

// ResolveSelector returns the override when present, else the global default.
func ResolveSelector(global Selector, override *Selector) Selector {
	if override != nil {
		return *override
	}
	return global
}

// ResolvePlaylistSelector resolves the effective selector for a playlist source.
//
// Channel-only global defaults (sub-feed filters) have no playlist meaning;
// they resolve to new_entries_from_the_top, which matches the channel
// boundary rule of stopping at the first seen ID.
func ResolvePlaylistSelector(global Selector, override *Selector) Selector {
	sel := ResolveSelector(global, override)
	if !playlistSelectors[sel] {
		return SelectorNewEntriesFromTop
	}
	return sel
}
