package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindMissingField       Kind = "missing_required_field"
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidFrameIndex  Kind = "invalid_frame_index"
	KindMalformedOutput    Kind = "malformed_model_output"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindBackendError       Kind = "backend_error"
	KindGenerationTimeout  Kind = "generation_timeout"
	KindTranslationFailure Kind = "translation_failure"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
)

// Sentinels for errors.Is checks.
var (
	ErrMissingField       = &Error{Kind: KindMissingField}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrInvalidFrameIndex  = &Error{Kind: KindInvalidFrameIndex}
	ErrMalformedOutput    = &Error{Kind: KindMalformedOutput}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable}
	ErrBackendError       = &Error{Kind: KindBackendError}
	ErrGenerationTimeout  = &Error{Kind: KindGenerationTimeout}
	ErrTranslationFailure = &Error{Kind: KindTranslationFailure}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
)

// Error is the typed error every component returns at its boundary.
// Raw holds model output for logging and is never sent to clients.
type Error struct {
	Status int
	Kind   Kind
	Msg    string
	Raw    string
	Err    error
	// Upstream is the status code reported by an external backend.
	Upstream int
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind. An invalid frame index is also a malformed output.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindInvalidFrameIndex && t.Kind == KindMalformedOutput
}

func New(status int, kind Kind, msg string, err error) *Error {
	return &Error{Status: status, Kind: kind, Msg: msg, Err: err}
}

func MissingField(name string) *Error {
	return New(http.StatusBadRequest, KindMissingField, fmt.Sprintf("%s is required", name), nil)
}

func InvalidInput(msg string) *Error {
	return New(http.StatusBadRequest, KindInvalidInput, msg, nil)
}

func InvalidFrameIndex(i, n int) *Error {
	return New(http.StatusBadRequest, KindInvalidFrameIndex, fmt.Sprintf("Invalid frame index %d for storyboard of %d frames", i, n), nil)
}

func Malformed(msg, raw string, err error) *Error {
	e := New(http.StatusInternalServerError, KindMalformedOutput, msg, err)
	e.Raw = raw
	return e
}

func Unavailable(err error) *Error {
	return New(http.StatusInternalServerError, KindBackendUnavailable, "generation backend unavailable", err)
}

// Backend reports a failed backend call. status is the upstream status, 0 when unknown.
func Backend(status int, err error) *Error {
	msg := "generation backend error"
	if status != 0 {
		msg = fmt.Sprintf("generation backend returned status %d", status)
	}
	e := New(http.StatusInternalServerError, KindBackendError, msg, err)
	e.Upstream = status
	return e
}

func Timeout(err error) *Error {
	return New(http.StatusGatewayTimeout, KindGenerationTimeout, "generation timed out", err)
}

func TranslationFailure(err error) *Error {
	return New(http.StatusInternalServerError, KindTranslationFailure, "translation failed", err)
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, KindNotFound, fmt.Sprintf("%s not found", what), nil)
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, KindConflict, msg, nil)
}

// Status returns the HTTP status for err, 500 for anything untyped.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Public returns the message safe to expose to a client.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return string(e.Kind)
	}
	return "internal server error"
}
