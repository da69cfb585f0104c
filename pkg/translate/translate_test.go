package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/schema"
)

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(text string) string
}

func (g *recordingGenerator) Generate(_ context.Context, req *inference.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	text := req.Parts[0].Text
	g.prompts = append(g.prompts, text)
	if req.Config.Temperature != 0.2 {
		return "", errors.New("translation must run at low temperature")
	}
	_, src, _ := strings.Cut(text, "\n\n")
	return g.reply(src), nil
}

func TestProjectionUsesGlossaryFirst(t *testing.T) {
	gen := &recordingGenerator{reply: func(s string) string { return "ES(" + s + ")" }}
	e := New(gen, 0)

	p := dna.Projection{
		DisplayName: "MrChannel",
		Fields: []schema.Section{
			{Title: "CreatorDNA", Body: "core"},
			{Title: "Fan Rituals", Body: "rituals"},
		},
	}
	out, err := e.Projection(context.Background(), schema.Creator, p, language.English, language.Spanish)
	if err != nil {
		t.Fatalf("Projection: %v", err)
	}

	if out.Fields[0].Title != "ADN del Creador" {
		t.Fatalf("mapped title = %q", out.Fields[0].Title)
	}
	if out.Fields[1].Title != "ES(Fan Rituals)" {
		t.Fatalf("unmapped title = %q", out.Fields[1].Title)
	}
	if out.Fields[0].Body != "ES(core)" || out.DisplayName != "MrChannel" {
		t.Fatalf("unexpected projection %+v", out)
	}
	if out.Source != language.EN {
		t.Fatalf("source = %q", out.Source)
	}

	var titleCalls int
	for _, prompt := range gen.prompts {
		if strings.HasSuffix(prompt, "Fan Rituals") {
			titleCalls++
		}
		if strings.HasSuffix(prompt, "CreatorDNA") {
			t.Fatal("mapped title was sent to the backend")
		}
	}
	if titleCalls != 1 {
		t.Fatalf("unmapped title translated %d times, want 1", titleCalls)
	}
	// Two bodies plus one unmapped title; the empty description is skipped.
	if len(gen.prompts) != 3 {
		t.Fatalf("backend calls = %d, want 3", len(gen.prompts))
	}
	if p.Fields[0].Title != "CreatorDNA" {
		t.Fatal("input projection was modified")
	}
}

func TestTextEmptyOutputFails(t *testing.T) {
	gen := &recordingGenerator{reply: func(string) string { return "   " }}
	_, err := New(gen, 0).Text(context.Background(), "hello", language.Spanish)
	if !errors.Is(err, apierr.ErrTranslationFailure) {
		t.Fatalf("err = %v, want translation failure", err)
	}
}
