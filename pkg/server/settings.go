package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"branddna/pkg/apierr"
	"branddna/pkg/models"
)

type setModelReq struct {
	ModelID   string `json:"modelId"`
	ModelType string `json:"modelType"`
}

// POST /api/v1/aiModels/setModel
func (s *Server) handleSetModel(c echo.Context) error {
	var req setModelReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(req.ModelID) == "" {
		return apierr.MissingField("modelId")
	}
	m, err := s.Models.Set(models.Kind(strings.ToLower(req.ModelType)), req.ModelID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "model": m.ID})
}

type setLanguageReq struct {
	Language string `json:"language"`
}

// POST /api/v1/setCurrentLanguage
func (s *Server) handleSetCurrentLanguage(c echo.Context) error {
	var req setLanguageReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	lang, err := s.Session.Set(req.Language)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "currentLanguage": lang})
}

type translateReq struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

// POST /api/v1/translate
func (s *Server) handleTranslate(c echo.Context) error {
	var req translateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	out, err := s.Service.Translate(c.Request().Context(), req.Text, s.lang(c, req.TargetLanguage))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"translatedText": out})
}

type setCorpusReq struct {
	CreatorDNAListFile string `json:"creatorDnaListFile"`
}

// POST /api/v1/creatorDna/setCurrentCreatorDnaList
func (s *Server) handleSetCurrentCreatorList(c echo.Context) error {
	var req setCorpusReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	corpus, err := s.Service.Corpus().Set(req.CreatorDNAListFile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "currentCreatorDnaListFile": corpus})
}
