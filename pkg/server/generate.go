package server

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"branddna/pkg/apierr"
	"branddna/pkg/orchestrate"
	"branddna/pkg/schema"
)

type conceptReq struct {
	Prompt   string          `json:"prompt"`
	BrandDNA json.RawMessage `json:"brandDNA"`
	Language string          `json:"language"`
}

func (s *Server) bindConcept(c echo.Context) (orchestrate.ConceptInput, error) {
	var req conceptReq
	if err := c.Bind(&req); err != nil {
		return orchestrate.ConceptInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	return orchestrate.ConceptInput{
		Prompt:   req.Prompt,
		BrandDNA: req.BrandDNA,
		Language: s.lang(c, req.Language),
	}, nil
}

// POST /api/v1/generateImages
func (s *Server) handleImageConcepts(c echo.Context) error {
	in, err := s.bindConcept(c)
	if err != nil {
		return err
	}
	out, err := s.Service.ImageConcepts(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/v1/generateVideoConcepts
func (s *Server) handleVideoConcepts(c echo.Context) error {
	in, err := s.bindConcept(c)
	if err != nil {
		return err
	}
	out, err := s.Service.VideoConcepts(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type storyboardReq struct {
	VideoConcept    string                   `json:"videoConcept"`
	BrandDNA        json.RawMessage          `json:"brandDNA"`
	CreatorDNA      json.RawMessage          `json:"creatorDNA"`
	IntegrationType *orchestrate.Integration `json:"integrationType"`
	Version         string                   `json:"version"`
	Language        string                   `json:"language"`
}

func (s *Server) storyboardInput(c echo.Context, req storyboardReq) orchestrate.StoryboardInput {
	return orchestrate.StoryboardInput{
		VideoConcept: req.VideoConcept,
		BrandDNA:     req.BrandDNA,
		CreatorDNA:   req.CreatorDNA,
		Integration:  req.IntegrationType,
		Version:      req.Version,
		Language:     s.lang(c, req.Language),
	}
}

// POST /api/v1/generateStoryboard
func (s *Server) handleStoryboard(c echo.Context) error {
	var req storyboardReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	out, err := s.Service.Storyboard(c.Request().Context(), s.storyboardInput(c, req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type frameReq struct {
	storyboardReq
	Storyboard []schema.Scene `json:"storyboard"`
	FrameIndex *int           `json:"frameIndex"`
	Feedback   string         `json:"feedback"`
}

// POST /api/v1/regenerateStoryboardFrame
func (s *Server) handleRegenerateFrame(c echo.Context) error {
	var req frameReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	out, err := s.Service.RegenerateFrame(c.Request().Context(), orchestrate.FrameInput{
		StoryboardInput: s.storyboardInput(c, req.storyboardReq),
		Storyboard:      req.Storyboard,
		FrameIndex:      req.FrameIndex,
		Feedback:        req.Feedback,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type reviewReq struct {
	Scenes        []json.RawMessage `json:"scenes"`
	BrandDNA      json.RawMessage   `json:"brandDNA"`
	CampaignBrief string            `json:"campaignBrief"`
	CampaignGoal  string            `json:"campaignGoal"`
	Language      string            `json:"language"`
}

// POST /api/v1/reviewStoryboard
func (s *Server) handleReviewStoryboard(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	out, err := s.Service.ReviewStoryboard(c.Request().Context(), orchestrate.ReviewInput{
		Scenes:        req.Scenes,
		BrandDNA:      req.BrandDNA,
		CampaignBrief: req.CampaignBrief,
		CampaignGoal:  req.CampaignGoal,
		Language:      s.lang(c, req.Language),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type matchReq struct {
	Brief     string          `json:"brief"`
	BrandDNA  json.RawMessage `json:"brandDNA"`
	MatchType string          `json:"matchType"`
	Language  string          `json:"language"`
}

// POST /api/v1/getMatch accepts JSON or a multipart form with attachments.
func (s *Server) handleMatch(c echo.Context) error {
	files, err := formFiles(c, "file", "files")
	if err != nil {
		return err
	}
	var req matchReq
	if isMultipart(c) {
		req = matchReq{
			Brief:     c.FormValue("brief"),
			BrandDNA:  rawJSON(c.FormValue("brandDNA")),
			MatchType: c.FormValue("matchType"),
			Language:  c.FormValue("language"),
		}
	} else if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	out, err := s.Service.Match(c.Request().Context(), orchestrate.MatchInput{
		Brief:     req.Brief,
		BrandDNA:  req.BrandDNA,
		MatchType: req.MatchType,
		Files:     files,
		Language:  s.lang(c, req.Language),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"matches": out.Matches,
	})
}

type ideasReq struct {
	BrandDNA     json.RawMessage `json:"brandDNA"`
	CreatorDNA   json.RawMessage `json:"creatorDNA"`
	CurrentIdeas schema.Ideas    `json:"currentIdeas"`
	Feedback     string          `json:"feedback"`
	Brief        string          `json:"brief"`
	Language     string          `json:"language"`
}

// POST /api/v1/regenerateContentIdeas
func (s *Server) handleRegenerateIdeas(c echo.Context) error {
	var req ideasReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	out, err := s.Service.RegenerateIdeas(c.Request().Context(), orchestrate.IdeasInput{
		BrandDNA:     req.BrandDNA,
		CreatorDNA:   req.CreatorDNA,
		CurrentIdeas: req.CurrentIdeas,
		Feedback:     req.Feedback,
		Brief:        req.Brief,
		Language:     s.lang(c, req.Language),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"contentIdeas": out.ContentIdeas,
	})
}

type imagesReq struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspectRatio"`
	NumberOfImages int    `json:"numberOfImages"`
	Language       string `json:"language"`
}

// POST /api/v1/generateImagesFromPrompt
func (s *Server) handleImagesFromPrompt(c echo.Context) error {
	var req imagesReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	images, err := s.Service.GenerateImages(c.Request().Context(), orchestrate.ImageInput{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Count:       req.NumberOfImages,
		Language:    s.lang(c, req.Language),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"images": images})
}

type storyboardImagesReq struct {
	ImagePrompts json.RawMessage `json:"imagePrompts"`
	Language     string          `json:"language"`
}

// POST /api/v1/generateStoryboardImages
func (s *Server) handleStoryboardImages(c echo.Context) error {
	var req storyboardImagesReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	var imagePrompts []string
	if err := json.Unmarshal(req.ImagePrompts, &imagePrompts); err != nil || imagePrompts == nil {
		return apierr.InvalidInput("imagePrompts must be an array")
	}
	if len(imagePrompts) == 0 {
		return apierr.MissingField("imagePrompts")
	}
	images, err := s.Service.StoryboardImages(c.Request().Context(), imagePrompts, s.lang(c, req.Language))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"images": images})
}

type editImageReq struct {
	ImageBase64     string `json:"imageBase64"`
	EditDescription string `json:"editDescription"`
}

// POST /api/v1/editImage
func (s *Server) handleEditImage(c echo.Context) error {
	var req editImageReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	edited, err := s.Service.EditImage(c.Request().Context(), orchestrate.EditInput{
		Image:       req.ImageBase64,
		Instruction: req.EditDescription,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"editedImageDataUrl": edited})
}
