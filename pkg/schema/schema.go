package schema

import (
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
)

func generateSchema[T any]() any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

var (
	BrandDNASchema        = generateSchema[BrandDNA]()
	ChannelAnalysisSchema = generateSchema[ChannelAnalysis]()
	ConceptsSchema        = generateSchema[Concepts]()
	StoryboardSchema      = generateSchema[Storyboard]()
	FrameSchema           = generateSchema[Frame]()
	ReviewSchema          = generateSchema[Review]()
	MatchesSchema         = generateSchema[Matches]()
	ContentIdeasSchema    = generateSchema[ContentIdeas]()
)

// ResponseFormat wraps a reflected schema for OpenAI-compatible backends.
// Strict mode is off because several result types carry optional fields.
func ResponseFormat(name string, schema any) openai.ChatCompletionNewParamsResponseFormatUnion {
	p := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   name,
		Schema: schema,
		Strict: openai.Bool(false),
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: p},
	}
}
