package inference

import (
	"cmp"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"branddna/pkg/apierr"
	"branddna/pkg/schema"
)

// OpenAIInferencer implements Generator against any OpenAI-compatible
// chat completion endpoint.
type OpenAIInferencer struct {
	client *openai.Client
	apiKey string
	model  string
}

func NewOpenAIInferencer(apiKey string, model string) *OpenAIInferencer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIInferencer{
		client: &client,
		apiKey: apiKey,
		model:  model,
	}
}

func (o *OpenAIInferencer) ChangeBaseURL(baseURL string) {
	client := openai.NewClient(
		option.WithAPIKey(o.apiKey),
		option.WithBaseURL(baseURL),
	)
	o.client = &client
}

// Generate ignores req.Model when it names a Gemini model, since the
// catalog is shared with the Gemini backend.
func (o *OpenAIInferencer) Generate(ctx context.Context, req *Request) (string, error) {
	model := o.model
	if req.Model != "" && !strings.HasPrefix(req.Model, "gemini") {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(int64(cmp.Or(req.Config.MaxOutputTokens, 8192))),
		Temperature:         openai.Float(float64(cmp.Or(req.Config.Temperature, 0.3))),
		TopP:                openai.Float(float64(cmp.Or(req.Config.TopP, 1.0))),
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: param.Opt[string]{Value: req.System},
				},
			},
		})
	}
	params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: contentParts(req.Parts),
			},
		},
	})

	if req.Config.JSON {
		if req.Config.Schema != nil {
			params.ResponseFormat = schema.ResponseFormat(cmp.Or(req.Config.SchemaName, "result"), req.Config.Schema)
		} else {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			}
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apierr.Backend(0, errors.New("no choices returned"))
	}
	if resp.Choices[0].Message.Content == "" {
		return "", apierr.Backend(0, errors.New("empty completion content"))
	}

	return resp.Choices[0].Message.Content, nil
}

func contentParts(parts []Part) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch {
		case !p.IsFile():
			out = append(out, openai.TextContentPart(p.Text))
		case strings.HasPrefix(p.MIMEType, "image/"):
			url := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
		case strings.HasPrefix(p.MIMEType, "text/"):
			out = append(out, openai.TextContentPart(string(p.Data)))
		default:
			out = append(out, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))),
				Filename: openai.String("upload"),
			}))
		}
	}
	return out
}

func openAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apierr.Backend(apiErr.StatusCode, err)
	}
	return apierr.Unavailable(fmt.Errorf("openai inference error: %w", err))
}
