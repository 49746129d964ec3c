// YouTube Data API v3 [Source] implementation.
//
// Uploads are listed through the channel's related uploads playlist; the
// full-videos / livestreams / shorts sub-feeds are addressed by rewriting
// the uploads playlist ID prefix (UU -> UULF / UULV / UUSH).
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

const listPageSize = 50

var (
	channelIDPattern     = regexp.MustCompile(`^(?:https?://(?:www\.)?youtube\.com/channel/)?(UC[\w\-]{22})$`)
	channelHandlePattern = regexp.MustCompile(`^(?:https?://(?:www\.)?youtube\.com/)?(@[\w\-.]+)$`)
	playlistIDPattern    = regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/playlist\?list=([\w\-]+)`)
)

// YouTubeService implements Source against the YouTube Data API v3.
type YouTubeService struct {
	svc     *youtube.Service
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewYouTubeService wraps an authorized youtube.Service. rateLimit caps API
// requests per second; zero or negative disables throttling.
func NewYouTubeService(svc *youtube.Service, rateLimit float64, logger *log.Logger) *YouTubeService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}

	return &YouTubeService{
		svc:     svc,
		limiter: limiter,
		logger:  logger,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// ChannelUploads lists the channel's uploads newest-first, restricted to the
// sub-feed selected by filter.
func (y *YouTubeService) ChannelUploads(ctx context.Context, channelID string, filter settings.Selector) (VideoIterator, error) {
	id, err := y.resolveChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	uploadsID, err := y.uploadsPlaylistID(ctx, id)
	if err != nil {
		return nil, err
	}

	return y.newPlaylistIterator(subFeedPlaylistID(uploadsID, filter)), nil
}

// PlaylistItems lists the playlist's items in stored order, top first.
func (y *YouTubeService) PlaylistItems(ctx context.Context, playlistID string) (VideoIterator, error) {
	return y.newPlaylistIterator(NormalizePlaylistID(playlistID)), nil
}

// AppendToPlaylist inserts the video at the end of the playlist. Failures
// are logged and reported as false; the caller decides how to react.
func (y *YouTubeService) AppendToPlaylist(ctx context.Context, playlistID, videoID string) bool {
	if err := y.limiter.Wait(ctx); err != nil {
		return false
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: NormalizePlaylistID(playlistID),
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}

	resp, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	if err != nil {
		y.logger.Error("failed to add video to playlist", "video", videoID, "playlist", playlistID, "error", err)
		return false
	}

	return resp.Id != ""
}

// resolveChannelID normalizes a channel ID, channel URL, or @handle to a
// canonical UC... ID. Handles need one channels.list lookup.
func (y *YouTubeService) resolveChannelID(ctx context.Context, input string) (string, error) {
	if m := channelIDPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}

	if m := channelHandlePattern.FindStringSubmatch(input); m != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return "", classifyAPIError(err)
		}

		resp, err := y.svc.Channels.List([]string{"id"}).ForHandle(m[1]).Context(ctx).Do()
		if err != nil {
			return "", classifyAPIError(err)
		}
		if len(resp.Items) == 0 {
			return "", fmt.Errorf("%w: no channel found for handle %s", shared.ErrTransientSource, m[1])
		}
		return resp.Items[0].Id, nil
	}

	return input, nil
}

// uploadsPlaylistID looks up the channel's related uploads playlist.
func (y *YouTubeService) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return "", classifyAPIError(err)
	}

	resp, err := y.svc.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return "", classifyAPIError(err)
	}

	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return "", fmt.Errorf("%w: uploads playlist of %s not found, channel deleted?", shared.ErrTransientSource, channelID)
	}

	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// subFeedPlaylistID rewrites an uploads playlist ID to the sub-feed selected
// by filter. all_videos keeps the plain uploads feed.
func subFeedPlaylistID(uploadsID string, filter settings.Selector) string {
	switch filter {
	case settings.SelectorFullVideosOnly:
		return strings.Replace(uploadsID, "UU", "UULF", 1)
	case settings.SelectorLivestreamsOnly:
		return strings.Replace(uploadsID, "UU", "UULV", 1)
	case settings.SelectorShortsOnly:
		return strings.Replace(uploadsID, "UU", "UUSH", 1)
	default:
		return uploadsID
	}
}

// NormalizePlaylistID strips a playlist URL down to its bare ID.
func NormalizePlaylistID(input string) string {
	if m := playlistIDPattern.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return input
}

// playlistIterator pages through playlistItems.list lazily, pulling the next
// page only when the buffered one is exhausted.
type playlistIterator struct {
	owner      *YouTubeService
	playlistID string

	buf       []string
	idx       int
	current   string
	pageToken string
	started   bool
	done      bool
	err       error
}

func (y *YouTubeService) newPlaylistIterator(playlistID string) *playlistIterator {
	return &playlistIterator{owner: y, playlistID: playlistID}
}

func (it *playlistIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	for it.idx >= len(it.buf) {
		if it.done {
			return false
		}
		if !it.fetchPage(ctx) {
			return false
		}
	}

	it.current = it.buf[it.idx]
	it.idx++
	return true
}

func (it *playlistIterator) VideoID() string {
	return it.current
}

func (it *playlistIterator) Err() error {
	return it.err
}

// fetchPage pulls the next page of playlist items into the buffer.
func (it *playlistIterator) fetchPage(ctx context.Context) bool {
	if it.started && it.pageToken == "" {
		it.done = true
		return false
	}

	if err := it.owner.limiter.Wait(ctx); err != nil {
		it.err = classifyAPIError(err)
		return false
	}

	call := it.owner.svc.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(it.playlistID).
		MaxResults(listPageSize).
		Context(ctx)
	if it.pageToken != "" {
		call = call.PageToken(it.pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		it.err = classifyAPIError(err)
		return false
	}

	it.started = true
	it.buf = it.buf[:0]
	it.idx = 0
	for _, item := range resp.Items {
		if item.ContentDetails != nil {
			it.buf = append(it.buf, item.ContentDetails.VideoId)
		}
	}

	it.pageToken = resp.NextPageToken
	if it.pageToken == "" {
		it.done = true
	}

	return len(it.buf) > 0 || !it.done
}

// classifyAPIError maps an API failure onto the engine's error taxonomy:
// credential problems are fatal for the run, everything else is scoped to
// the current source.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", shared.ErrFatalAuth, err)
		case http.StatusForbidden:
			for _, item := range gerr.Errors {
				switch item.Reason {
				case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
					return fmt.Errorf("%w: %v", shared.ErrTransientSource, err)
				}
			}
			return fmt.Errorf("%w: %v", shared.ErrFatalAuth, err)
		case http.StatusNotFound, http.StatusBadRequest:
			return fmt.Errorf("%w: %v", shared.ErrTransientSource, err)
		}
	}

	return fmt.Errorf("%w: %v", shared.ErrTransientSource, err)
}
