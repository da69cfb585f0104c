package orchestrate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"branddna/pkg/apierr"
	"branddna/pkg/language"
	"branddna/pkg/prompts"
	"branddna/pkg/schema"
)

type ConceptInput struct {
	Prompt   string
	BrandDNA json.RawMessage
	Language language.Language
}

func (s *Service) ImageConcepts(ctx context.Context, in ConceptInput) (schema.Concepts, error) {
	return s.concepts(ctx, prompts.ImageConcepts, "Overall creative concept for these images", in)
}

func (s *Service) VideoConcepts(ctx context.Context, in ConceptInput) (schema.Concepts, error) {
	return s.concepts(ctx, prompts.VideoConcepts, "Overall creative concept for this video", in)
}

func (s *Service) concepts(ctx context.Context, task prompts.Task, label string, in ConceptInput) (schema.Concepts, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return schema.Concepts{}, apierr.MissingField("prompt")
	}
	text := in.Prompt
	if present(in.BrandDNA) {
		var p composite
		p.block("Brand DNA", contextText(in.BrandDNA))
		p.line(label + ": " + in.Prompt)
		text = p.String()
	}

	result, tmpl, raw, err := generate[schema.Concepts](ctx, s, request{task: task, lang: in.Language, prompt: text})
	if err != nil {
		return schema.Concepts{}, err
	}
	if err := result.Validate(); err != nil {
		return schema.Concepts{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}

type Integration struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type StoryboardInput struct {
	VideoConcept string
	BrandDNA     json.RawMessage
	CreatorDNA   json.RawMessage
	Integration  *Integration
	Version      string
	Language     language.Language
}

func (in StoryboardInput) validate() error {
	switch {
	case strings.TrimSpace(in.VideoConcept) == "":
		return apierr.MissingField("videoConcept")
	case !present(in.BrandDNA):
		return apierr.MissingField("brandDNA")
	case !present(in.CreatorDNA):
		return apierr.MissingField("creatorDNA")
	case in.Integration == nil || strings.TrimSpace(in.Integration.Type) == "":
		return apierr.MissingField("integrationType")
	}
	return nil
}

func (in StoryboardInput) describe(p *composite) {
	p.block("Brand DNA", contextText(in.BrandDNA))
	p.block("Creator DNA", contextText(in.CreatorDNA))
	p.block("Video Concept", in.VideoConcept)
	p.block("Integration Type", in.Integration.Type+" - "+in.Integration.Description)
}

// Storyboard writes a five-act (v1) or seven-act (v2) storyboard.
func (s *Service) Storyboard(ctx context.Context, in StoryboardInput) (schema.Storyboard, error) {
	if err := in.validate(); err != nil {
		return schema.Storyboard{}, err
	}
	version, err := prompts.ParseVersion(in.Version)
	if err != nil {
		return schema.Storyboard{}, err
	}

	var p composite
	in.describe(&p)
	p.line("Please create a storyboard that effectively incorporates this specific type of brand integration " +
		"while maintaining authenticity with the creator's DNA, style, and content approach.")

	result, tmpl, raw, err := generate[schema.Storyboard](ctx, s, request{
		task:    prompts.Storyboard,
		version: version,
		lang:    in.Language,
		prompt:  p.String(),
	})
	if err != nil {
		return schema.Storyboard{}, err
	}
	if err := result.Validate(tmpl.Count); err != nil {
		return schema.Storyboard{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}

type FrameInput struct {
	StoryboardInput
	Storyboard []schema.Scene
	// FrameIndex is nil when the caller did not send one.
	FrameIndex *int
	Feedback   string
}

// RegenerateFrame rewrites one scene of an existing storyboard.
func (s *Service) RegenerateFrame(ctx context.Context, in FrameInput) (schema.Frame, error) {
	if err := in.validate(); err != nil {
		return schema.Frame{}, err
	}
	switch {
	case len(in.Storyboard) == 0:
		return schema.Frame{}, apierr.MissingField("storyboard")
	case in.FrameIndex == nil:
		return schema.Frame{}, apierr.MissingField("frameIndex")
	case *in.FrameIndex < 0 || *in.FrameIndex >= len(in.Storyboard):
		return schema.Frame{}, apierr.InvalidFrameIndex(*in.FrameIndex, len(in.Storyboard))
	case strings.TrimSpace(in.Feedback) == "":
		return schema.Frame{}, apierr.MissingField("feedback")
	}
	i := *in.FrameIndex

	var p composite
	in.describe(&p)
	p.block("Complete Storyboard", mustJSON(in.Storyboard))
	p.block("Frame to Regenerate (Index "+strconv.Itoa(i)+")", mustJSON(in.Storyboard[i]))
	p.block("User Feedback for this Frame", in.Feedback)
	p.line("Please regenerate ONLY this specific frame based on the user feedback while maintaining consistency with the rest of the storyboard.")

	result, tmpl, raw, err := generate[schema.Frame](ctx, s, request{
		task:   prompts.StoryboardFrame,
		lang:   in.Language,
		prompt: p.String(),
	})
	if err != nil {
		return schema.Frame{}, err
	}
	if err := result.Validate(); err != nil {
		return schema.Frame{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}

type ReviewInput struct {
	Scenes        []json.RawMessage
	BrandDNA      json.RawMessage
	CampaignBrief string
	CampaignGoal  string
	Language      language.Language
}

// ReviewStoryboard flags scenes that conflict with the brand. The result
// has one entry per input scene.
func (s *Service) ReviewStoryboard(ctx context.Context, in ReviewInput) (schema.Review, error) {
	switch {
	case len(in.Scenes) == 0:
		return schema.Review{}, apierr.MissingField("scenes")
	case !present(in.BrandDNA):
		return schema.Review{}, apierr.MissingField("brandDNA")
	case strings.TrimSpace(in.CampaignBrief) == "":
		return schema.Review{}, apierr.MissingField("campaignBrief")
	case strings.TrimSpace(in.CampaignGoal) == "":
		return schema.Review{}, apierr.MissingField("campaignGoal")
	}

	var p composite
	p.block("Brand DNA", contextText(in.BrandDNA))
	p.block("Campaign Brief", in.CampaignBrief)
	p.block("Campaign Goal", in.CampaignGoal)
	p.block("Scenes to Review", mustJSON(in.Scenes))
	p.line("Please review each scene and identify any potential conflicts with the brand DNA.")

	result, tmpl, raw, err := generate[schema.Review](ctx, s, request{
		task:   prompts.StoryboardReview,
		lang:   in.Language,
		prompt: p.String(),
	})
	if err != nil {
		return schema.Review{}, err
	}
	if err := result.Validate(len(in.Scenes)); err != nil {
		return schema.Review{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}
