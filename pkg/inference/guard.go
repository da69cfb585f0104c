package inference

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/utils"
)

type GuardConfig struct {
	// Timeout bounds every single backend call.
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// Guard wraps a Generator with a per-call timeout and bounded retries
// for transient failures.
type Guard struct {
	next Generator
	cfg  GuardConfig
}

func NewGuard(next Generator, cfg GuardConfig) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Guard{next: next, cfg: cfg}
}

func (g *Guard) Generate(ctx context.Context, req *Request) (string, error) {
	return guarded(ctx, g.cfg, req.Model, func(ctx context.Context) (string, error) {
		return g.next.Generate(ctx, req)
	})
}

// ImageGuard applies the same timeout and retry policy to image calls.
type ImageGuard struct {
	next   Imager
	editor Editor
	cfg    GuardConfig
}

// NewImageGuard wraps next. Image edits are offered when next is also an
// Editor.
func NewImageGuard(next Imager, cfg GuardConfig) *ImageGuard {
	g := NewGuard(nil, cfg)
	editor, _ := next.(Editor)
	return &ImageGuard{next: next, editor: editor, cfg: g.cfg}
}

func (g *ImageGuard) GenerateImages(ctx context.Context, req *ImageRequest) ([]Image, error) {
	return guarded(ctx, g.cfg, req.Model, func(ctx context.Context) ([]Image, error) {
		return g.next.GenerateImages(ctx, req)
	})
}

func (g *ImageGuard) EditImage(ctx context.Context, req *EditRequest) (Image, error) {
	if g.editor == nil {
		return Image{}, apierr.Unavailable(errors.New("image backend does not support edits"))
	}
	return guarded(ctx, g.cfg, req.Model, func(ctx context.Context) (Image, error) {
		return g.editor.EditImage(ctx, req)
	})
}

func guarded[T any](ctx context.Context, cfg GuardConfig, model string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		out, err := once(ctx, cfg.Timeout, call)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || attempt == cfg.Attempts {
			break
		}
		wait := utils.Backoff(attempt, cfg.Backoff, 30*time.Second)
		log.Warn("generation failed, retrying", "model", model, "attempt", attempt, "wait", wait, "error", err)
		if err := utils.Sleep(ctx, wait); err != nil {
			break
		}
	}
	return zero, lastErr
}

func once[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	var zero T
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := call(callCtx)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return zero, apierr.Timeout(err)
	}
	var e *apierr.Error
	if errors.As(err, &e) {
		return zero, err
	}
	return zero, apierr.Unavailable(err)
}

func retryable(err error) bool {
	var e *apierr.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case apierr.KindBackendUnavailable, apierr.KindGenerationTimeout:
		return true
	case apierr.KindBackendError:
		return utils.IsRetryableStatus(e.Upstream)
	}
	return false
}
