// Package orchestrate runs the generation pipelines: validate the input,
// build the composite prompt, call the generator, extract and validate the
// structured result.
package orchestrate

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/extract"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/prompts"
	"branddna/pkg/utils"
	"branddna/pkg/youtube"
)

// TextTranslator translates free text into a target language.
type TextTranslator interface {
	Text(ctx context.Context, text string, target language.Language) (string, error)
}

// StatsSource reports channel view statistics.
type StatsSource interface {
	ChannelStats(ctx context.Context, channelID string) (youtube.Stats, error)
}

// TranscriptFetcher fetches transcripts for a list of video URLs.
type TranscriptFetcher interface {
	Transcripts(ctx context.Context, urls []string) ([]youtube.Transcript, error)
}

type ImageConfig struct {
	// WebP re-encodes generated images before they are returned.
	WebP    bool
	Quality int
	// Concurrency bounds parallel image generations for a storyboard.
	Concurrency int
	EditModel   string
}

type Deps struct {
	Generator  inference.Generator
	Imager     inference.Imager
	Editor     inference.Editor
	Models     *models.Registry
	Brands     *dna.Store
	Creators   *dna.Store
	Corpus     *dna.CorpusSelection
	Translator TextTranslator
	Stats      StatsSource
	Videos     TranscriptFetcher
	Images     ImageConfig
}

type Service struct {
	gen        inference.Generator
	imager     inference.Imager
	editor     inference.Editor
	models     *models.Registry
	brands     *dna.Store
	creators   *dna.Store
	corpus     *dna.CorpusSelection
	translator TextTranslator
	stats      StatsSource
	videos     TranscriptFetcher
	images     ImageConfig
}

func New(d Deps) *Service {
	if d.Images.Quality <= 0 {
		d.Images.Quality = 90
	}
	if d.Images.Concurrency <= 0 {
		d.Images.Concurrency = 4
	}
	if d.Images.EditModel == "" {
		d.Images.EditModel = inference.DefaultEditModel
	}
	if d.Corpus == nil {
		d.Corpus = dna.NewCorpusSelection(dna.EnglishCreators)
	}
	return &Service{
		gen:        d.Generator,
		imager:     d.Imager,
		editor:     d.Editor,
		models:     d.Models,
		brands:     d.Brands,
		creators:   d.Creators,
		corpus:     d.Corpus,
		translator: d.Translator,
		stats:      d.Stats,
		videos:     d.Videos,
		images:     d.Images,
	}
}

// File is an uploaded document passed to a generation.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// inline reports whether the backend receives the file as bytes rather
// than as extracted text.
func (f File) inline() bool {
	return strings.HasPrefix(f.MIMEType, "image/") || f.MIMEType == "application/pdf"
}

func inlineParts(files []File) []inference.Part {
	parts := make([]inference.Part, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		parts = append(parts, inference.File(f.Data, f.MIMEType))
	}
	return parts
}

// request describes one generation. The composite prompt is sent between
// the leading and trailing parts.
type request struct {
	task      prompts.Task
	version   prompts.Version
	lang      language.Language
	leading   []inference.Part
	prompt    string
	trailing  []inference.Part
	grounding bool
}

// generate runs r and decodes the result into T. raw is returned for
// post-validation diagnostics.
func generate[T any](ctx context.Context, s *Service, r request) (result T, tmpl prompts.Template, raw string, err error) {
	tmpl, err = prompts.Lookup(r.task, r.version, r.lang)
	if err != nil {
		return result, tmpl, "", err
	}

	sel := models.FromContext(ctx)
	prompt := r.prompt
	if r.lang == language.Spanish {
		prompt += tmpl.SpanishNote
	}
	parts := slices.Concat(r.leading, []inference.Part{inference.Text(prompt)}, r.trailing)

	cfg := tmpl.Config
	if r.grounding && s.models != nil {
		if m, ok := s.models.Lookup(sel.LLM); ok && m.Grounding {
			cfg.Grounding = true
		}
	}

	l := log.With("task", r.task, "version", tmpl.Version, "language", r.lang, "model", sel.LLM)
	if log.GetLevel() <= log.DebugLevel {
		if n, err := utils.NumTokens(tmpl.Instruction + prompt); err == nil {
			l.Debug("prompt size", "tokens", n, "files", len(r.leading)+len(r.trailing))
		}
	}

	start := time.Now()
	raw, err = s.gen.Generate(ctx, &inference.Request{
		Model:  sel.LLM,
		System: tmpl.Instruction,
		Parts:  parts,
		Config: cfg,
	})
	if err != nil {
		l.Error("generation failed", "error", err, "elapsed", time.Since(start))
		return result, tmpl, "", err
	}
	l.Info("generation done", "elapsed", time.Since(start), "chars", len(raw))

	result, err = extract.Decode[T](raw)
	return result, tmpl, raw, err
}

// invalid reports a result that parsed but does not have the required shape.
func invalid(task prompts.Task, raw string, err error) error {
	log.Error("model output failed validation", "task", task, "error", err)
	return apierr.Malformed("model output failed validation", raw, err)
}

// present reports whether a caller-supplied context object carries a value.
func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null")) && !bytes.Equal(t, []byte(`""`))
}

// contextText renders a caller-supplied context object for the prompt.
// JSON strings are used verbatim, everything else as compact JSON.
func contextText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// composite builds prompts from labelled blocks in a fixed order.
type composite struct {
	b strings.Builder
}

func (p *composite) block(label, body string) *composite {
	p.b.WriteString(label)
	p.b.WriteString(":\n")
	p.b.WriteString(body)
	p.b.WriteString("\n\n")
	return p
}

func (p *composite) line(s string) *composite {
	p.b.WriteString(s)
	p.b.WriteString("\n")
	return p
}

func (p *composite) String() string {
	return strings.TrimRight(p.b.String(), "\n")
}
