// Package extract recovers a JSON object from free-form model output.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/utils"
)

var (
	openFence  = regexp.MustCompile("^```(?:json)?\\s*")
	closeFence = regexp.MustCompile("\\s*```$")

	errTrailing = errors.New("unexpected data after JSON object")
)

// Clean strips a reasoning preamble and surrounding markdown fences.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "</think>"); i >= 0 && strings.HasPrefix(s, "<think>") {
		s = strings.TrimSpace(s[i+len("</think>"):])
	}
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Extract returns the JSON object contained in raw. It first parses the
// cleaned text as a whole and then falls back to the span between the
// first '{' and the last '}'.
func Extract(raw string) (map[string]any, error) {
	s := Clean(raw)

	var out map[string]any
	err := unmarshal(s, &out)
	if err == nil && out != nil {
		return out, nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		log.Warn("no JSON object found in model output", "chars", len(raw))
		log.Debug("raw output", "output", utils.LimitStr(raw, 2000))
		return nil, apierr.Malformed("model returned malformed JSON", raw, err)
	}

	out = nil
	if err := unmarshal(s[start:end+1], &out); err != nil || out == nil {
		log.Warn("failed to parse model JSON", "error", err)
		log.Debug("raw output", "output", utils.LimitStr(raw, 2000))
		return nil, apierr.Malformed("model returned malformed JSON", raw, err)
	}
	return out, nil
}

// Decode extracts the object in raw and decodes it into T.
func Decode[T any](raw string) (T, error) {
	var zero T
	obj, err := Extract(raw)
	if err != nil {
		return zero, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return zero, apierr.Malformed("model returned malformed JSON", raw, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn("model JSON has unexpected shape", "error", err)
		return zero, apierr.Malformed("model returned JSON of unexpected shape", raw, err)
	}
	return v, nil
}

func unmarshal(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailing
	}
	return nil
}
