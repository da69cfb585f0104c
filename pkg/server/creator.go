package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/language"
	"branddna/pkg/orchestrate"
	"branddna/pkg/schema"
)

// creatorDoc is a stored creator as the client sees it.
type creatorDoc struct {
	ChannelName        string            `json:"channelName"`
	ChannelDisplayName string            `json:"channelDisplayName,omitempty"`
	ChannelDescription string            `json:"channelDescription,omitempty"`
	ChannelAnalysis    []schema.Section  `json:"channelAnalysis"`
	ChannelID          string            `json:"channelId,omitempty"`
	ChannelURL         string            `json:"channelUrl,omitempty"`
	AverageViews       int64             `json:"averageViews,omitempty"`
	Timeframe          string            `json:"timeframe,omitempty"`
	Language           language.Language `json:"language"`
}

func creatorFromView(v dna.View) creatorDoc {
	doc := creatorDoc{
		ChannelName:        v.Key,
		ChannelDisplayName: v.DisplayName,
		ChannelDescription: v.Description,
		ChannelAnalysis:    v.Fields,
		Language:           v.Language,
	}
	if ch := v.Channel; ch != nil {
		doc.ChannelID = ch.ChannelID
		doc.ChannelURL = ch.ChannelURL
		doc.AverageViews = ch.AverageViews
		doc.Timeframe = ch.Timeframe
	}
	return doc
}

// POST /api/v1/creatorDna/analyzeChannel
func (s *Server) handleAnalyzeChannel(c echo.Context) error {
	files, err := formFiles(c, "files", "file")
	if err != nil {
		return err
	}

	var in orchestrate.ChannelInput
	var lang string
	if isMultipart(c) {
		in.ChannelName = c.FormValue("channelName")
		in.ChannelID = c.FormValue("channelId")
		if in.Transcripts, err = parseTranscripts(c.FormValue("transcripts")); err != nil {
			return err
		}
		lang = c.FormValue("language")
	} else {
		var req struct {
			ChannelName string            `json:"channelName"`
			ChannelID   string            `json:"channelId"`
			Transcripts []transcriptVideo `json:"transcripts"`
			Language    string            `json:"language"`
		}
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
		}
		in.ChannelName, in.ChannelID, lang = req.ChannelName, req.ChannelID, req.Language
		in.Transcripts = flatten(req.Transcripts)
	}
	in.Files = files
	in.Language = s.lang(c, lang)

	result, err := s.Service.AnalyzeChannel(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"analysis": result,
	})
}

// GET /api/v1/creatorDna/getCreatorDNAs
func (s *Server) handleGetCreatorDNAs(c echo.Context) error {
	views, err := s.Creators.List(c.Request().Context(), s.lang(c, ""))
	if err != nil {
		return err
	}
	out := make([]creatorDoc, 0, len(views))
	for _, v := range views {
		out = append(out, creatorFromView(v))
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/v1/creatorDna/:channelName returns the full stored document.
func (s *Server) handleGetCreator(c echo.Context) error {
	rec, err := s.Creators.Document(c.Request().Context(), pathParam(c, "channelName"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

type saveCreatorReq struct {
	CreatorDNA *creatorDoc `json:"creatorDNA"`
	Language   string      `json:"language"`
}

// POST /api/v1/creatorDna/saveCreatorDNA
func (s *Server) handleSaveCreatorDNA(c echo.Context) error {
	var req saveCreatorReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.CreatorDNA == nil {
		return apierr.MissingField("creatorDNA")
	}
	doc := req.CreatorDNA
	name := strings.TrimSpace(doc.ChannelName)
	if name == "" {
		return apierr.MissingField("channelName")
	}
	display := strings.TrimSpace(doc.ChannelDisplayName)
	if display == "" {
		display = name
	}

	d := dna.Draft{
		Key:         name,
		DisplayName: display,
		Description: doc.ChannelDescription,
		Fields:      doc.ChannelAnalysis,
	}
	if doc.ChannelID != "" || doc.ChannelURL != "" || doc.AverageViews != 0 || doc.Timeframe != "" {
		d.Channel = &dna.ChannelMeta{
			ChannelID:    doc.ChannelID,
			ChannelURL:   doc.ChannelURL,
			AverageViews: doc.AverageViews,
			Timeframe:    doc.Timeframe,
		}
	}
	if _, err := s.Creators.Save(c.Request().Context(), d, s.lang(c, req.Language), true); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Creator DNA saved successfully.",
	})
}

// DELETE /api/v1/creatorDna/deleteCreatorDNA/:channelName
func (s *Server) handleDeleteCreatorDNA(c echo.Context) error {
	name := strings.TrimSpace(pathParam(c, "channelName"))
	if name == "" {
		return apierr.MissingField("channelName")
	}
	if err := s.Creators.Delete(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Creator DNA deleted successfully.",
	})
}

type channelStatsReq struct {
	ChannelID string `json:"channelId"`
}

// POST /api/v1/creatorDna/getChannelStats
func (s *Server) handleGetChannelStats(c echo.Context) error {
	var req channelStatsReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	stats, err := s.Service.ChannelStats(c.Request().Context(), req.ChannelID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

// POST /api/v1/transcripts/getChannelTranscripts
func (s *Server) handleChannelTranscripts(c echo.Context) error {
	var req struct {
		VideoURLs json.RawMessage `json:"videoUrls"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	var urls []string
	if err := json.Unmarshal(req.VideoURLs, &urls); err != nil || len(urls) == 0 {
		return apierr.InvalidInput("No valid video URLs provided")
	}
	transcripts, err := s.Service.Transcripts(c.Request().Context(), urls)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"transcripts": transcripts,
	})
}
