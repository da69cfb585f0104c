package youtube

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"branddna/pkg/apierr"
)

const maxPlaylistItems = 50

// Client reads channel uploads through the YouTube Data API v3.
type Client struct {
	svc *yt.Service
}

func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return &Client{svc: svc}, nil
}

// RecentVideos returns up to 50 of the channel's latest uploads, newest first.
func (c *Client) RecentVideos(ctx context.Context, channelID string) ([]Video, error) {
	channels, err := c.svc.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, youtubeError(err)
	}
	if len(channels.Items) == 0 || channels.Items[0].ContentDetails == nil ||
		channels.Items[0].ContentDetails.RelatedPlaylists == nil {
		return nil, apierr.NotFound("Channel")
	}
	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	items, err := c.svc.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(uploads).
		MaxResults(maxPlaylistItems).
		Context(ctx).
		Do()
	if err != nil {
		return nil, youtubeError(err)
	}
	ids := make([]string, 0, len(items.Items))
	for _, it := range items.Items {
		if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
			ids = append(ids, it.ContentDetails.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	resp, err := c.svc.Videos.List([]string{"snippet", "statistics"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, youtubeError(err)
	}
	videos := make([]Video, 0, len(resp.Items))
	for _, v := range resp.Items {
		video := Video{ID: v.Id}
		if v.Snippet != nil {
			video.Title = v.Snippet.Title
			if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
				video.PublishedAt = t
			} else {
				log.Warn("unparseable publish date", "video", v.Id, "value", v.Snippet.PublishedAt)
			}
		}
		if v.Statistics != nil {
			video.Views = v.Statistics.ViewCount
		}
		videos = append(videos, video)
	}
	slices.SortFunc(videos, byRecency)
	return videos, nil
}

func youtubeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 404 {
			return apierr.NotFound("Channel")
		}
		return apierr.Backend(gerr.Code, err)
	}
	return apierr.Unavailable(err)
}
