package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"branddna/pkg/apierr"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123&t=42s", "abc123"},
		{"https://youtube.com/watch?list=PL1&v=xyz", "xyz"},
		{"https://youtu.be/short1?si=share", "short1"},
		{"https://www.youtube.com/shorts/clip9", "clip9"},
		{"https://www.youtube.com/embed/emb7", "emb7"},
		{"https://www.youtube.com/@channel", ""},
		{"not a url", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := VideoID(tc.url); got != tc.want {
			t.Errorf("VideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

type fakeTranscripts struct {
	mu    sync.Mutex
	calls []time.Time
	fail  map[string]bool
}

func (f *fakeTranscripts) Transcript(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	if f.fail[id] {
		return "", apierr.Backend(500, errors.New("upstream"))
	}
	return "text of " + id, nil
}

func TestTranscriptsSkipsBadVideos(t *testing.T) {
	src := &fakeTranscripts{fail: map[string]bool{"broken": true}}
	tr := NewTranscriber(src, 20*time.Millisecond)

	got, err := tr.Transcripts(context.Background(), []string{
		"https://www.youtube.com/watch?v=one",
		"https://example.com/nothing",
		"https://www.youtube.com/watch?v=broken",
		"https://youtu.be/two",
	})
	if err != nil {
		t.Fatalf("Transcripts: %v", err)
	}
	if len(got) != 2 || got[0].Transcript[0].Text != "text of one" || got[1].VideoURL != "https://youtu.be/two" {
		t.Fatalf("transcripts = %+v", got)
	}
	if len(src.calls) != 3 {
		t.Fatalf("source calls = %d, want 3", len(src.calls))
	}
	for i := 1; i < len(src.calls); i++ {
		if gap := src.calls[i].Sub(src.calls[i-1]); gap < 15*time.Millisecond {
			t.Fatalf("calls %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestTranscriptsRequiresURLs(t *testing.T) {
	_, err := NewTranscriber(&fakeTranscripts{}, 0).Transcripts(context.Background(), nil)
	if !errors.Is(err, apierr.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestTranscriptsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTranscriber(&fakeTranscripts{}, time.Hour).Transcripts(ctx, []string{"https://youtu.be/a", "https://youtu.be/b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestSupadataTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/transcript" || r.Header.Get("x-api-key") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("text") != "true" {
			http.Error(w, "text mode expected", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("videoId") {
		case "ok":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"content":"hello world","lang":"en"}`))
		case "gone":
			http.Error(w, "no transcript", http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	s := NewSupadata("secret", srv.URL+"/", srv.Client())
	ctx := context.Background()

	text, err := s.Transcript(ctx, "ok")
	if err != nil || text != "hello world" {
		t.Fatalf("Transcript = %q, %v", text, err)
	}
	if _, err := s.Transcript(ctx, "gone"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing transcript: %v", err)
	}
	_, err = s.Transcript(ctx, "other")
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Upstream != http.StatusBadGateway {
		t.Fatalf("upstream failure: %v", err)
	}
	if _, err := NewSupadata("wrong", srv.URL, srv.Client()).Transcript(ctx, "ok"); apierr.Status(err) != 500 {
		t.Fatalf("bad key: %v", err)
	}
}
