// Package youtube computes channel view statistics from the YouTube Data API.
package youtube

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/flight"
)

const (
	TimeframeRecent = "past 3 months"
	TimeframeLatest = "5 most recent videos"
	TimeframeNone   = "no videos available"

	latestCount = 5
)

type Video struct {
	ID          string
	Title       string
	PublishedAt time.Time
	Views       uint64
}

type Stats struct {
	AverageViews int64  `json:"averageViews"`
	Timeframe    string `json:"timeframe"`
}

// Source lists the most recent uploads of a channel.
type Source interface {
	RecentVideos(ctx context.Context, channelID string) ([]Video, error)
}

// Average computes the mean views over videos published in the three
// months before now, or over the five most recent videos when none are
// that new.
func Average(videos []Video, now time.Time) Stats {
	sorted := slices.Clone(videos)
	slices.SortFunc(sorted, byRecency)

	cutoff := now.AddDate(0, -3, 0)
	var picked []Video
	for _, v := range sorted {
		if !v.PublishedAt.Before(cutoff) {
			picked = append(picked, v)
		}
	}
	timeframe := TimeframeRecent
	if len(picked) == 0 {
		picked = sorted[:min(latestCount, len(sorted))]
		timeframe = TimeframeLatest
	}
	if len(picked) == 0 {
		return Stats{Timeframe: TimeframeNone}
	}

	var total uint64
	for _, v := range picked {
		total += v.Views
	}
	return Stats{
		AverageViews: int64(math.Round(float64(total) / float64(len(picked)))),
		Timeframe:    timeframe,
	}
}

// Service serves channel stats, coalescing concurrent lookups and keeping
// results for ttl.
type Service struct {
	cache *flight.Cache[string, Stats]
	now   func() time.Time
}

func NewService(src Source, ttl time.Duration) *Service {
	s := &Service{now: time.Now}
	s.cache = flight.NewCache(ttl, func(ctx context.Context, channelID string) (Stats, error) {
		videos, err := src.RecentVideos(ctx, channelID)
		if err != nil {
			return Stats{}, err
		}
		stats := Average(videos, s.now())
		log.Info("channel stats", "channel", channelID, "videos", len(videos), "average", stats.AverageViews, "timeframe", stats.Timeframe)
		return stats, nil
	})
	return s
}

func (s *Service) ChannelStats(ctx context.Context, channelID string) (Stats, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Stats{}, apierr.MissingField("channelId")
	}
	return s.cache.Get(ctx, channelID)
}

// byRecency orders videos newest first.
func byRecency(a, b Video) int {
	return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
}
