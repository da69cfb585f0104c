package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/language"
	"branddna/pkg/prompts"
	"branddna/pkg/schema"
	"branddna/pkg/utils"
)

// MatchTypes are the match types that select the second matching template.
var MatchTypes = []string{"expected", "balanced", "unexpected"}

// matchVersion maps an empty match type to v1 and a known one to v2.
func matchVersion(matchType string) (prompts.Version, error) {
	if matchType == "" {
		return prompts.V1, nil
	}
	for _, t := range MatchTypes {
		if matchType == t {
			return prompts.V2, nil
		}
	}
	return "", apierr.InvalidInput(fmt.Sprintf("Invalid match type %q", matchType))
}

type MatchInput struct {
	Brief     string
	BrandDNA  json.RawMessage
	MatchType string
	Files     []File
	Language  language.Language
}

// creatorEntry is how a stored creator is presented to the matcher.
type creatorEntry struct {
	ChannelName string           `json:"channelName"`
	Description string           `json:"channelDescription,omitempty"`
	Analysis    []schema.Section `json:"channelAnalysis"`
	Language    string           `json:"language"`
}

// Match ranks creators from the current corpus against a brand.
func (s *Service) Match(ctx context.Context, in MatchInput) (schema.Matches, error) {
	if !present(in.BrandDNA) {
		return schema.Matches{}, apierr.MissingField("brandDNA")
	}
	matchType := strings.ToLower(strings.TrimSpace(in.MatchType))
	version, err := matchVersion(matchType)
	if err != nil {
		return schema.Matches{}, err
	}

	creators, err := s.corpusCreators(ctx)
	if err != nil {
		return schema.Matches{}, err
	}
	if len(creators) == 0 {
		return schema.Matches{}, apierr.MissingField("creatorDNAs")
	}

	brief := in.Brief
	if strings.TrimSpace(brief) == "" {
		brief = "No brief provided"
	}

	var p composite
	p.line("Please analyze this brand and their concept to find the best creator matches.")
	p.line("")
	p.line("Brand Brief: " + brief)
	p.line("<!-- The brief may contain a requirement to include a specific creator in the matches -->")
	p.line("")
	p.line("Brand DNA: " + contextText(in.BrandDNA))
	p.line("")
	if version == prompts.V2 {
		p.line("Requested match type: " + matchType)
		p.line("")
	}
	p.block("Available Creator DNAs to choose from", utils.PrettyJSON(creators))
	p.line("Please analyze the brand DNA and above creator DNAs to find the best matches for this collaboration opportunity. " +
		"Think critically about the Brand's DNA, the Brand's Brief, and review every creator's DNA before making your recommendation.")
	p.line("")
	p.line("YOU MUST OUTPUT the matches in the specified JSON format. NEVER GIVE ANY ADDITIONAL COMMENTARY. ONLY OUTPUT THE JSON")

	result, tmpl, raw, err := generate[schema.Matches](ctx, s, request{
		task:    prompts.Match,
		version: version,
		lang:    in.Language,
		leading: inlineParts(in.Files),
		prompt:  p.String(),
	})
	if err != nil {
		return schema.Matches{}, err
	}
	if err := result.Validate(tmpl.Count); err != nil {
		return schema.Matches{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}

func (s *Service) corpusCreators(ctx context.Context) ([]creatorEntry, error) {
	if s.creators == nil {
		return nil, nil
	}
	views, err := s.creators.List(ctx, s.corpus.Get().Language())
	if err != nil {
		return nil, err
	}
	out := make([]creatorEntry, 0, len(views))
	for _, v := range views {
		out = append(out, creatorEntry{
			ChannelName: v.DisplayName,
			Description: v.Description,
			Analysis:    v.Fields,
			Language:    string(v.Language),
		})
	}
	return out, nil
}

// Corpus exposes the creator corpus selection.
func (s *Service) Corpus() *dna.CorpusSelection { return s.corpus }

type IdeasInput struct {
	BrandDNA     json.RawMessage
	CreatorDNA   json.RawMessage
	CurrentIdeas schema.Ideas
	Feedback     string
	Brief        string
	Language     language.Language
}

// RegenerateIdeas produces new content ideas for a brand and creator pair
// that address the caller's feedback.
func (s *Service) RegenerateIdeas(ctx context.Context, in IdeasInput) (schema.ContentIdeas, error) {
	switch {
	case !present(in.BrandDNA):
		return schema.ContentIdeas{}, apierr.MissingField("brandDNA")
	case !present(in.CreatorDNA):
		return schema.ContentIdeas{}, apierr.MissingField("creatorDNA")
	case strings.TrimSpace(in.Feedback) == "":
		return schema.ContentIdeas{}, apierr.MissingField("feedback")
	}
	brief := in.Brief
	if strings.TrimSpace(brief) == "" {
		brief = "No brief provided"
	}

	var p composite
	p.line("Please generate new content ideas for a brand-creator collaboration based on the following information:")
	p.line("")
	p.block("BRAND DNA", contextText(in.BrandDNA))
	p.block("CREATOR DNA", contextText(in.CreatorDNA))
	p.block("ORIGINAL BRIEF", brief)
	p.block("CURRENT CONTENT IDEAS", strings.Join(in.CurrentIdeas, "\n"))
	p.block("USER FEEDBACK", in.Feedback)
	p.line(fmt.Sprintf("Based on this information, please generate %d-%d new content ideas that address the user's feedback "+
		"while maintaining alignment between the brand and creator. Remember to keep each idea concise, direct, and without titles or numbering.",
		schema.MinIdeas, schema.MaxIdeas))

	result, tmpl, raw, err := generate[schema.ContentIdeas](ctx, s, request{
		task:   prompts.ContentIdeas,
		lang:   in.Language,
		prompt: p.String(),
	})
	if err != nil {
		return schema.ContentIdeas{}, err
	}
	if err := result.Validate(); err != nil {
		return schema.ContentIdeas{}, invalid(tmpl.Task, raw, err)
	}
	return result, nil
}
