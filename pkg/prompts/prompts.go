// Package prompts holds the versioned instruction templates for every
// generation task, selectable by task, version and language.
package prompts

import (
	"fmt"
	"slices"
	"strings"

	"branddna/pkg/apierr"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/schema"
)

type Task string

const (
	BrandDNA         Task = "brand_dna"
	ChannelDNA       Task = "channel_dna"
	ImageConcepts    Task = "image_concepts"
	VideoConcepts    Task = "video_concepts"
	Storyboard       Task = "storyboard"
	StoryboardFrame  Task = "storyboard_frame"
	StoryboardReview Task = "storyboard_review"
	Match            Task = "match"
	ContentIdeas     Task = "content_ideas"
	Translate        Task = "translate"
)

type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// ParseVersion maps "" to V1 and rejects anything but v1 and v2.
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case "", V1:
		return V1, nil
	case V2:
		return V2, nil
	}
	return "", apierr.InvalidInput(fmt.Sprintf("Invalid version %q", s))
}

type Template struct {
	Task        Task
	Version     Version
	Language    language.Language
	Instruction string
	Config      inference.Config
	// Count is the number of items the result must contain, 0 when the
	// task has no fixed cardinality.
	Count int
	// SpanishNote is appended to the composite prompt for Spanish requests.
	SpanishNote string
}

const spanishNote = "\nPLEASE RESPOND IN SPANISH"

var (
	creative = inference.Config{Temperature: 1, TopP: 0.95, MaxOutputTokens: 8192, JSON: true}
	review   = inference.Config{Temperature: 0.7, TopP: 0.8, MaxOutputTokens: 8192, JSON: true}
	ideas    = inference.Config{Temperature: 1, TopP: 0.95, MaxOutputTokens: 2048, JSON: true}
	precise  = inference.Config{Temperature: 0.2, TopP: 0.95, MaxOutputTokens: 8192}
)

func withSchema(c inference.Config, name string, s any) inference.Config {
	c.Schema = s
	c.SchemaName = name
	return c
}

type key struct {
	task    Task
	version Version
	lang    language.Language
}

var registry = map[key]Template{}

func register(t Template) {
	if t.SpanishNote == "" {
		t.SpanishNote = spanishNote
	}
	registry[key{t.Task, t.Version, t.Language}] = t
}

// registerShared registers one instruction for both languages.
func registerShared(t Template) {
	for _, lang := range []language.Language{language.English, language.Spanish} {
		t.Language = lang
		register(t)
	}
}

func init() {
	for _, lang := range []language.Language{language.English, language.Spanish} {
		register(Template{
			Task: BrandDNA, Version: V1, Language: lang,
			Instruction: brandInstruction(lang),
			Config:      withSchema(creative, "brand_dna", schema.BrandDNASchema),
			Count:       schema.BrandSections,
		})
		register(Template{
			Task: ChannelDNA, Version: V1, Language: lang,
			Instruction: channelInstruction(lang),
			Config:      withSchema(creative, "channel_dna", schema.ChannelAnalysisSchema),
			Count:       schema.CreatorSections,
			SpanishNote: "\n\nPLEASE GENERATE THE ENTIRE ANALYSIS IN SPANISH, including every section body. Keep the section titles exactly as listed in the instructions.",
		})
	}

	registerShared(Template{Task: ImageConcepts, Version: V1, Instruction: imageConcepts,
		Config: withSchema(creative, "image_concepts", schema.ConceptsSchema), Count: schema.ConceptCount})
	registerShared(Template{Task: VideoConcepts, Version: V1, Instruction: videoConcepts,
		Config: withSchema(creative, "video_concepts", schema.ConceptsSchema), Count: schema.ConceptCount})
	registerShared(Template{Task: Storyboard, Version: V1, Instruction: storyboardInstruction(5, false),
		Config: withSchema(creative, "storyboard", schema.StoryboardSchema), Count: 5})
	registerShared(Template{Task: Storyboard, Version: V2, Instruction: storyboardInstruction(7, true),
		Config: withSchema(creative, "storyboard", schema.StoryboardSchema), Count: 7})
	registerShared(Template{Task: StoryboardFrame, Version: V1, Instruction: frameInstruction,
		Config: withSchema(creative, "storyboard_frame", schema.FrameSchema), Count: 1})
	registerShared(Template{Task: StoryboardReview, Version: V1, Instruction: reviewInstruction,
		Config: withSchema(review, "storyboard_review", schema.ReviewSchema)})
	registerShared(Template{Task: Match, Version: V1, Instruction: matchInstruction,
		Config: withSchema(creative, "matches", schema.MatchesSchema), Count: 3})
	registerShared(Template{Task: Match, Version: V2, Instruction: matchV2Instruction,
		Config: withSchema(creative, "matches", schema.MatchesSchema), Count: 8})
	registerShared(Template{Task: ContentIdeas, Version: V1, Instruction: ideasInstruction,
		Config: withSchema(ideas, "content_ideas", schema.ContentIdeasSchema)})
	registerShared(Template{Task: Translate, Version: V1, Instruction: translateInstruction, Config: precise})
}

// Lookup returns the template for task, version and language. An empty
// version selects v1.
func Lookup(task Task, version Version, lang language.Language) (Template, error) {
	if version == "" {
		version = V1
	}
	t, ok := registry[key{task, version, language.Normalize(string(lang))}]
	if !ok {
		return Template{}, apierr.InvalidInput(fmt.Sprintf("no %s template for version %s", task, version))
	}
	return t, nil
}

// All lists every registered template in a stable order.
func All() []Template {
	out := make([]Template, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Template) int {
		if c := strings.Compare(string(a.Task), string(b.Task)); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.Version), string(b.Version)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Language), string(b.Language))
	})
	return out
}

// Tasks lists every task with at least one template.
func Tasks() []Task {
	return []Task{BrandDNA, ChannelDNA, ImageConcepts, VideoConcepts, Storyboard,
		StoryboardFrame, StoryboardReview, Match, ContentIdeas, Translate}
}
