package orchestrate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"branddna/pkg/apierr"
	"branddna/pkg/inference"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/utils"
	"branddna/pkg/youtube"
)

const (
	defaultAspectRatio = "4:3"
	defaultImageCount  = 4
	maxImageCount      = 4
)

// Translate translates free text for the translate endpoint.
func (s *Service) Translate(ctx context.Context, text string, target language.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apierr.MissingField("text")
	}
	if s.translator == nil {
		return "", apierr.Unavailable(errors.New("no translator configured"))
	}
	return s.translator.Text(ctx, text, language.Normalize(string(target)))
}

type ImageInput struct {
	Prompt      string
	AspectRatio string
	Count       int
	Language    language.Language
}

// Image is a generated image as returned to callers.
type Image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// GenerateImages renders a prompt with the selected image model. Spanish
// prompts are translated to English first; the original prompt is used if
// that translation fails.
func (s *Service) GenerateImages(ctx context.Context, in ImageInput) ([]Image, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, apierr.MissingField("prompt")
	}
	if in.Count < 0 || in.Count > maxImageCount {
		return nil, apierr.InvalidInput(fmt.Sprintf("numberOfImages must be between 1 and %d", maxImageCount))
	}
	if s.imager == nil {
		return nil, apierr.Unavailable(errors.New("no image backend configured"))
	}

	prompt := in.Prompt
	if in.Language == language.Spanish && s.translator != nil {
		translated, err := s.translator.Text(ctx, in.Prompt, language.English)
		if err != nil {
			log.Warn("prompt translation failed, using original prompt", "error", err)
		} else {
			prompt = translated
		}
	}

	count := in.Count
	if count <= 0 {
		count = defaultImageCount
	}
	aspect := in.AspectRatio
	if aspect == "" {
		aspect = defaultAspectRatio
	}

	sel := models.FromContext(ctx)
	images, err := s.imager.GenerateImages(ctx, &inference.ImageRequest{
		Model:       sel.Vision,
		Prompt:      prompt,
		Count:       count,
		AspectRatio: aspect,
	})
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apierr.Backend(0, errors.New("no images were generated"))
	}
	log.Info("images generated", "model", sel.Vision, "count", len(images), "aspect", aspect)

	out := make([]Image, 0, len(images))
	for _, img := range images {
		out = append(out, s.encode(img))
	}
	return out, nil
}

func (s *Service) encode(img inference.Image) Image {
	data, mime := img.Data, img.MIMEType
	if s.images.WebP {
		if webp, err := utils.ToWebP(img.Data, s.images.Quality); err != nil {
			log.Warn("webp encoding failed, returning original image", "error", err)
		} else {
			data, mime = webp, "image/webp"
		}
	}
	return Image{Data: base64.StdEncoding.EncodeToString(data), MIMEType: mime}
}

// StoryboardImages renders one image per prompt, in prompt order.
func (s *Service) StoryboardImages(ctx context.Context, imagePrompts []string, lang language.Language) ([]Image, error) {
	out := make([]Image, len(imagePrompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.images.Concurrency)
	for i, p := range imagePrompts {
		g.Go(func() error {
			imgs, err := s.GenerateImages(gctx, ImageInput{Prompt: p, Count: 1, Language: lang})
			if err != nil {
				return err
			}
			out[i] = imgs[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type EditInput struct {
	// Image is a data URL or bare base64 data.
	Image       string
	Instruction string
}

// EditImage rewrites an image following the instruction and returns the
// result as a data URL.
func (s *Service) EditImage(ctx context.Context, in EditInput) (string, error) {
	switch {
	case strings.TrimSpace(in.Image) == "":
		return "", apierr.MissingField("imageBase64")
	case strings.TrimSpace(in.Instruction) == "":
		return "", apierr.MissingField("editDescription")
	}
	data, mime, err := decodeDataURL(in.Image)
	if err != nil {
		return "", err
	}
	if s.editor == nil {
		return "", apierr.Unavailable(errors.New("no image editor configured"))
	}

	img, err := s.editor.EditImage(ctx, &inference.EditRequest{
		Model:       s.images.EditModel,
		Image:       data,
		MIMEType:    mime,
		Instruction: in.Instruction,
	})
	if err != nil {
		return "", err
	}
	log.Info("image edited", "model", s.images.EditModel, "in", len(data), "out", len(img.Data))
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

// decodeDataURL accepts "data:<mime>;base64,<data>" or bare base64.
func decodeDataURL(v string) ([]byte, string, error) {
	v = strings.TrimSpace(v)
	var mime string
	if rest, ok := strings.CutPrefix(v, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", apierr.InvalidInput("imageBase64 must be a base64 data URL")
		}
		mime, v = strings.TrimSuffix(meta, ";base64"), payload
	}
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(data) == 0 {
		return nil, "", apierr.InvalidInput("imageBase64 is not valid base64")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// ChannelStats reports the average views of a YouTube channel.
func (s *Service) ChannelStats(ctx context.Context, channelID string) (youtube.Stats, error) {
	if strings.TrimSpace(channelID) == "" {
		return youtube.Stats{}, apierr.MissingField("channelId")
	}
	if s.stats == nil {
		return youtube.Stats{}, apierr.Unavailable(errors.New("YouTube API key not configured"))
	}
	return s.stats.ChannelStats(ctx, channelID)
}

// Transcripts fetches the transcripts of the given videos.
func (s *Service) Transcripts(ctx context.Context, urls []string) ([]youtube.Transcript, error) {
	if s.videos == nil {
		return nil, apierr.Unavailable(errors.New("transcript API key not configured"))
	}
	return s.videos.Transcripts(ctx, urls)
}
