package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"branddna/pkg/apierr"
)

const DefaultTranscriptURL = "https://api.supadata.ai/v1"

// TranscriptSource returns the plain text transcript of one video.
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// Supadata fetches transcripts from the Supadata YouTube API.
type Supadata struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSupadata(apiKey, baseURL string, client *http.Client) *Supadata {
	if baseURL == "" {
		baseURL = DefaultTranscriptURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supadata{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *Supadata) Transcript(ctx context.Context, videoID string) (string, error) {
	q := url.Values{"videoId": {videoID}, "text": {"true"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/youtube/transcript?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", apierr.Unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusNotFound {
			return "", apierr.NotFound("Transcript")
		}
		return "", apierr.Backend(resp.StatusCode, fmt.Errorf("transcript %s: %s", videoID, strings.TrimSpace(string(body))))
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierr.Backend(resp.StatusCode, fmt.Errorf("decode transcript %s: %w", videoID, err))
	}
	return out.Content, nil
}

// Segment is one timed piece of a transcript. Text-mode transcripts come
// back as a single untimed segment.
type Segment struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

type Transcript struct {
	VideoURL   string    `json:"videoUrl"`
	Transcript []Segment `json:"transcript"`
}

// Transcriber fetches transcripts for a list of video URLs, spacing the
// calls to the source by interval.
type Transcriber struct {
	src     TranscriptSource
	limiter *rate.Limiter
}

func NewTranscriber(src TranscriptSource, interval time.Duration) *Transcriber {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Transcriber{src: src, limiter: rate.NewLimiter(limit, 1)}
}

// Transcripts skips URLs without a video ID and videos whose transcript
// cannot be fetched. Only a cancelled context fails the call.
func (t *Transcriber) Transcripts(ctx context.Context, urls []string) ([]Transcript, error) {
	if len(urls) == 0 {
		return nil, apierr.InvalidInput("No valid video URLs provided")
	}
	out := make([]Transcript, 0, len(urls))
	for _, u := range urls {
		id := VideoID(u)
		if id == "" {
			log.Warn("skipping video url without an id", "url", u)
			continue
		}
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		text, err := t.src.Transcript(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("skipping transcript", "video", id, "error", err)
			continue
		}
		out = append(out, Transcript{VideoURL: u, Transcript: []Segment{{Text: text}}})
	}
	log.Info("fetched transcripts", "requested", len(urls), "fetched", len(out))
	return out, nil
}

// VideoID extracts the video ID from watch, short-link, shorts and embed
// URLs. It returns "" when none is present.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	path := strings.Trim(u.Path, "/")
	switch host := strings.TrimPrefix(u.Hostname(), "www."); {
	case host == "youtu.be":
		id, _, _ := strings.Cut(path, "/")
		return id
	case strings.HasSuffix(host, "youtube.com"):
		for _, prefix := range []string{"shorts/", "embed/", "live/"} {
			if rest, ok := strings.CutPrefix(path, prefix); ok {
				id, _, _ := strings.Cut(rest, "/")
				return id
			}
		}
	}
	return ""
}
