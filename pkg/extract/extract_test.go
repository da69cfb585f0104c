package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"branddna/pkg/apierr"
)

func TestExtractRecovers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain", `{"a":1,"b":"x"}`},
		{"fenced json", "```json\n{\"a\":1,\"b\":\"x\"}\n```"},
		{"fenced bare", "```\n{\"a\":1,\"b\":\"x\"}\n```"},
		{"prose around", "Here is the result:\n{\"a\":1,\"b\":\"x\"}\nHope this helps!"},
		{"think block", "<think>the user wants {json}</think>\n{\"a\":1,\"b\":\"x\"}"},
		{"whitespace", "   \n\t{\"a\":1,\"b\":\"x\"}  \n"},
	}
	want := map[string]any{"a": json.Number("1"), "b": "x"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %#v, want %#v", got, want)
			}
		})
	}
}

func TestExtractIdempotent(t *testing.T) {
	raw := "Sure!\n```json\n{\"brandName\":\"Acme\",\"brandColors\":[\"#FF0000\"],\"n\":2.5}\n```"
	first, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Extract(string(data))
	if err != nil {
		t.Fatalf("Extract(serialized): %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("not idempotent: %#v vs %#v", first, second)
	}
}

func TestExtractFailure(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json here",
		"} backwards {",
		`{"a": }`,
		`[1,2,3]`,
	} {
		_, err := Extract(raw)
		if !errors.Is(err, apierr.ErrMalformedOutput) {
			t.Fatalf("Extract(%q) err = %v, want malformed output", raw, err)
		}
		var e *apierr.Error
		if errors.As(err, &e) && e.Raw != raw {
			t.Fatalf("raw text not preserved for logging: %q", e.Raw)
		}
	}
}

func TestDecode(t *testing.T) {
	type result struct {
		Concepts []struct {
			Title string `json:"concept_title"`
		} `json:"concepts"`
	}
	got, err := Decode[result]("```json\n{\"concepts\":[{\"concept_title\":\"One\"}]}\n```")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Concepts) != 1 || got.Concepts[0].Title != "One" {
		t.Fatalf("unexpected decode: %+v", got)
	}

	_, err = Decode[result](`{"concepts":"not a list"}`)
	if !errors.Is(err, apierr.ErrMalformedOutput) {
		t.Fatalf("err = %v, want malformed output", err)
	}
}
