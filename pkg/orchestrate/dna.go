package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/prompts"
	"branddna/pkg/schema"
	"branddna/pkg/utils"
)

// maxDocumentChars bounds a text document attached to a channel analysis.
const maxDocumentChars = 500_000

const transcriptSeparator = "\n\n=== NEXT VIDEO ===\n\n"

type BrandInput struct {
	BrandName string
	Files     []File
	Language  language.Language
}

// BrandDNA generates the brand identity for a brand name and stores it.
// Search grounding is enabled when the selected model supports it.
func (s *Service) BrandDNA(ctx context.Context, in BrandInput) (schema.BrandDNA, error) {
	name := strings.TrimSpace(in.BrandName)
	if name == "" {
		return schema.BrandDNA{}, apierr.MissingField("brandName")
	}

	result, tmpl, raw, err := generate[schema.BrandDNA](ctx, s, request{
		task:      prompts.BrandDNA,
		lang:      in.Language,
		leading:   inlineParts(in.Files),
		prompt:    "Get the brand DNA of " + name,
		grounding: true,
	})
	if err != nil {
		return schema.BrandDNA{}, err
	}
	if err := result.Validate(); err != nil {
		return schema.BrandDNA{}, invalid(tmpl.Task, raw, err)
	}
	if strings.TrimSpace(result.BrandName) == "" {
		result.BrandName = name
	}

	if s.brands != nil {
		_, err := s.brands.Save(ctx, dna.Draft{
			Key:         name,
			DisplayName: result.BrandName,
			Fields:      result.BrandAnalysis,
			BrandColors: result.BrandColors,
		}, in.Language, true)
		if err != nil {
			return schema.BrandDNA{}, err
		}
	}
	return result, nil
}

type ChannelInput struct {
	ChannelName string
	ChannelID   string
	// Transcripts holds one flattened transcript per video.
	Transcripts []string
	Files       []File
	Language    language.Language
}

type ChannelResult struct {
	ChannelName        string           `json:"channelName"`
	ChannelDescription string           `json:"channelDescription,omitempty"`
	ChannelAnalysis    []schema.Section `json:"channelAnalysis"`
}

// AnalyzeChannel builds the creator identity from transcripts and
// uploaded material and stores it.
func (s *Service) AnalyzeChannel(ctx context.Context, in ChannelInput) (ChannelResult, error) {
	name := strings.TrimSpace(in.ChannelName)
	if name == "" {
		return ChannelResult{}, apierr.MissingField("channelName")
	}

	var p composite
	p.line(fmt.Sprintf("Analyze the YouTube channel %q based on the following content:", name))
	p.line("1. Video Transcripts:")
	p.line(strings.Join(in.Transcripts, transcriptSeparator))
	p.line("2. Additional Channel Content and Context:")

	var trailing []inference.Part
	for _, f := range in.Files {
		if len(f.Data) == 0 {
			continue
		}
		if f.inline() {
			trailing = append(trailing, inference.File(f.Data, f.MIMEType))
			continue
		}
		content := string(f.Data)
		if len([]rune(content)) > maxDocumentChars {
			log.Warn("document exceeds size limit, truncating", "file", f.Name, "limit", maxDocumentChars)
			content = utils.Truncate(content, maxDocumentChars) + "... (truncated)"
		}
		trailing = append(trailing, inference.Text(fmt.Sprintf("\n\nDocument (%s):\n%s", f.Name, content)))
	}
	trailing = append(trailing, inference.Text("\n\nPlease analyze all available content to provide a comprehensive "+
		"understanding of the channel's DNA, considering the video transcripts, images, and any additional documents provided."))

	result, tmpl, raw, err := generate[schema.ChannelAnalysis](ctx, s, request{
		task:     prompts.ChannelDNA,
		lang:     in.Language,
		prompt:   p.String(),
		trailing: trailing,
	})
	if err != nil {
		return ChannelResult{}, err
	}
	if err := result.Validate(); err != nil {
		return ChannelResult{}, invalid(tmpl.Task, raw, err)
	}

	if s.creators != nil {
		d := dna.Draft{
			Key:         name,
			DisplayName: name,
			Description: result.ChannelDescription,
			Fields:      result.ChannelAnalysis,
		}
		if id := strings.TrimSpace(in.ChannelID); id != "" {
			d.Channel = &dna.ChannelMeta{ChannelID: id}
		}
		if _, err := s.creators.Save(ctx, d, in.Language, true); err != nil {
			return ChannelResult{}, err
		}
	}
	return ChannelResult{
		ChannelName:        name,
		ChannelDescription: result.ChannelDescription,
		ChannelAnalysis:    result.ChannelAnalysis,
	}, nil
}
