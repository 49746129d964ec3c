// package services defines the upstream Source contract the reconciliation
// engine consumes, plus its YouTube Data API implementation.
package services

import (
	"context"

	"github.com/sondrake/playfeed/internal/settings"
)

// VideoIterator lazily walks an upstream video listing in feed order.
//
// The usage pattern mirrors bufio.Scanner: call Next until it returns false,
// then consult Err to distinguish end-of-feed from failure.
type VideoIterator interface {
	// Next advances to the next video ID, fetching further upstream pages
	// as needed. Returns false at end of feed or on error.
	Next(ctx context.Context) bool

	// VideoID returns the ID produced by the last successful Next call.
	VideoID() string

	// Err returns the error that stopped iteration, or nil at a clean end.
	Err() error
}

// Source abstracts the upstream video provider the engine reconciles against.
//
// Implementations surface shared.ErrTransientSource for failures scoped to a
// single source and shared.ErrFatalAuth for credential failures that doom
// the whole run.
type Source interface {
	// ChannelUploads lists a channel's uploads newest-first, restricted to
	// the sub-feed selected by filter.
	ChannelUploads(ctx context.Context, channelID string, filter settings.Selector) (VideoIterator, error)

	// PlaylistItems lists a playlist's items in stored order, top first.
	PlaylistItems(ctx context.Context, playlistID string) (VideoIterator, error)

	// AppendToPlaylist appends a video to the playlist and reports whether
	// the append succeeded. Ordinary failures, including the video already
	// being present, yield false rather than an error.
	AppendToPlaylist(ctx context.Context, playlistID, videoID string) bool

	// Name returns the name of the upstream provider.
	Name() string
}
