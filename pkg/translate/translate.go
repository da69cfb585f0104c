// Package translate turns text and DNA projections into the other language.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/prompts"
	"branddna/pkg/schema"
)

type Engine struct {
	gen     inference.Generator
	limiter *rate.Limiter
}

// New returns an engine issuing at most rps live translations per second.
// rps <= 0 disables the limit.
func New(gen inference.Generator, rps float64) *Engine {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &Engine{gen: gen, limiter: rate.NewLimiter(limit, burst)}
}

// Text translates text into target. Empty input returns empty output
// without calling the backend.
func (e *Engine) Text(ctx context.Context, text string, target language.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	tmpl, err := prompts.Lookup(prompts.Translate, prompts.V1, target)
	if err != nil {
		return "", err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", apierr.TranslationFailure(err)
	}

	out, err := e.gen.Generate(ctx, &inference.Request{
		Model:  models.FromContext(ctx).LLM,
		System: tmpl.Instruction,
		Parts: []inference.Part{
			inference.Text(fmt.Sprintf("Translate the following text to %s:\n\n%s", target.Name(), text)),
		},
		Config: tmpl.Config,
	})
	if err != nil {
		if errors.Is(err, apierr.ErrGenerationTimeout) {
			return "", err
		}
		return "", apierr.TranslationFailure(err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", apierr.TranslationFailure(errors.New("backend returned no text"))
	}
	return out, nil
}

// Projection translates a DNA projection. Section titles found in the
// glossary are mapped directly; bodies, the description and unknown titles
// are translated live. The display name is kept as is.
func (e *Engine) Projection(ctx context.Context, entity schema.Entity, p dna.Projection, from, to language.Language) (dna.Projection, error) {
	out := p
	out.Fields = make([]schema.Section, len(p.Fields))
	out.Source = from.Code()

	var err error
	if out.Description, err = e.Text(ctx, p.Description, to); err != nil {
		return dna.Projection{}, fmt.Errorf("description: %w", err)
	}
	for i, f := range p.Fields {
		title, ok := schema.TranslateTitle(entity, f.Title, to)
		if !ok {
			log.Debug("section title not in glossary", "entity", entity, "title", f.Title)
			if title, err = e.Text(ctx, f.Title, to); err != nil {
				return dna.Projection{}, fmt.Errorf("section %d title: %w", i+1, err)
			}
		}
		body, err := e.Text(ctx, f.Body, to)
		if err != nil {
			return dna.Projection{}, fmt.Errorf("section %d body: %w", i+1, err)
		}
		out.Fields[i] = schema.Section{Title: title, Body: body}
	}
	log.Info("translated projection", "entity", entity, "from", from, "to", to, "sections", len(out.Fields))
	return out, nil
}
