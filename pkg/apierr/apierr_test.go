package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidFrameIndex(9, 5))
	if !errors.Is(err, ErrInvalidFrameIndex) {
		t.Fatal("expected invalid frame index")
	}
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatal("invalid frame index should also be malformed output")
	}
	if errors.Is(Malformed("bad", "raw", nil), ErrInvalidFrameIndex) {
		t.Fatal("malformed output is not an invalid frame index")
	}
	if Status(err) != http.StatusBadRequest {
		t.Fatalf("status = %d", Status(err))
	}
}

func TestPublicHidesRaw(t *testing.T) {
	err := Malformed("model returned malformed JSON", "secret raw output", nil)
	if got := Public(err); got != "model returned malformed JSON" {
		t.Fatalf("Public = %q", got)
	}
	if got := Public(errors.New("boom")); got != "internal server error" {
		t.Fatalf("Public(untyped) = %q", got)
	}
	if Status(errors.New("boom")) != http.StatusInternalServerError {
		t.Fatal("untyped errors should be 500")
	}
	if Status(Timeout(nil)) != http.StatusGatewayTimeout {
		t.Fatal("timeout should be 504")
	}
	if err := Conflict(`Brand DNA for "Acme" already exists`); Status(err) != http.StatusConflict || !errors.Is(err, ErrConflict) {
		t.Fatalf("conflict = %d %v", Status(err), err)
	}
}
