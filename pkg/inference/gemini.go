package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"branddna/pkg/apierr"
)

type GeminiConfig struct {
	APIKey string
	// Project and Location select the Vertex AI backend when Project is set.
	Project  string
	Location string
	Model    string
}

// DefaultEditModel is the image-output model used for edits.
const DefaultEditModel = "gemini-2.5-flash-image"

// GeminiInferencer implements Generator, Imager and Editor using the genai SDK.
type GeminiInferencer struct {
	client *genai.Client
	model  string
}

func NewGeminiInferencer(ctx context.Context, cfg GeminiConfig) (*GeminiInferencer, error) {
	clientConfig := &genai.ClientConfig{APIKey: cfg.APIKey}
	if cfg.Project != "" {
		clientConfig = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Project,
			Location: cmp.Or(cfg.Location, "us-central1"),
		}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}
	return &GeminiInferencer{
		client: client,
		model:  cmp.Or(cfg.Model, "gemini-2.0-flash-001"),
	}, nil
}

func (o *GeminiInferencer) Generate(ctx context.Context, req *Request) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: cmp.Or(req.Config.MaxOutputTokens, 8192),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleModel)
	}
	if req.Config.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Config.Temperature)
	}
	if req.Config.TopP > 0 {
		config.TopP = genai.Ptr(req.Config.TopP)
	}
	// Search grounding cannot be combined with a JSON response type.
	switch {
	case req.Config.Grounding:
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case req.Config.JSON:
		config.ResponseMIMEType = "application/json"
		if req.Config.Schema != nil {
			config.ResponseJsonSchema = req.Config.Schema
		}
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsFile() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := o.client.Models.GenerateContent(ctx, cmp.Or(req.Model, o.model), contents, config)
	if err != nil {
		return "", geminiError(err)
	}
	text := result.Text()
	if text == "" {
		return "", apierr.Backend(0, errors.New("empty completion content"))
	}
	return text, nil
}

func (o *GeminiInferencer) GenerateImages(ctx context.Context, req *ImageRequest) ([]Image, error) {
	config := &genai.GenerateImagesConfig{
		NumberOfImages: int32(cmp.Or(req.Count, 4)),
		AspectRatio:    cmp.Or(req.AspectRatio, "4:3"),
	}
	result, err := o.client.Models.GenerateImages(ctx, cmp.Or(req.Model, "imagen-3.0-generate-002"), req.Prompt, config)
	if err != nil {
		return nil, geminiError(err)
	}
	images := make([]Image, 0, len(result.GeneratedImages))
	for _, img := range result.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, Image{Data: img.Image.ImageBytes, MIMEType: cmp.Or(img.Image.MIMEType, "image/png")})
	}
	if len(images) == 0 {
		return nil, apierr.Backend(0, errors.New("no images returned"))
	}
	return images, nil
}

// EditImage sends the image and the instruction to an image-output model
// and returns the first image in the response.
func (o *GeminiInferencer) EditImage(ctx context.Context, req *EditRequest) (Image, error) {
	config := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](1),
		TopP:               genai.Ptr[float32](0.95),
		MaxOutputTokens:    8192,
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(req.Image, cmp.Or(req.MIMEType, "image/png")),
		genai.NewPartFromText(req.Instruction),
	}, genai.RoleUser)}

	result, err := o.client.Models.GenerateContent(ctx, cmp.Or(req.Model, DefaultEditModel), contents, config)
	if err != nil {
		return Image{}, geminiError(err)
	}
	for _, c := range result.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return Image{Data: p.InlineData.Data, MIMEType: cmp.Or(p.InlineData.MIMEType, "image/png")}, nil
			}
		}
	}
	return Image{}, apierr.Backend(0, errors.New("no image found in edit response"))
}

func geminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apierr.Backend(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apierr.Backend(apiErrPtr.Code, err)
	}
	return apierr.Unavailable(fmt.Errorf("failed to generate content: %w", err))
}
