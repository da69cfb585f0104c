package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"branddna/pkg/dna"
	"branddna/pkg/models"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Brand DNA API",
		"status":  "ok",
	})
}

type modelOption struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// GET /api/v1/aiModels/getAvailableModels
func (s *Server) handleGetAvailableModels(c echo.Context) error {
	llm := []modelOption{}
	vision := []modelOption{}
	for _, m := range s.Models.Available() {
		opt := modelOption{ID: m.ID, DisplayName: m.DisplayName}
		switch m.Kind {
		case models.LLM:
			llm = append(llm, opt)
		case models.Vision:
			vision = append(vision, opt)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"llmModels":    llm,
		"visionModels": vision,
	})
}

// GET /api/v1/aiModels/getCurrentModels
func (s *Server) handleGetCurrentModels(c echo.Context) error {
	cur := s.Models.Current()
	return c.JSON(http.StatusOK, map[string]string{
		"llmModelId":    cur.LLM,
		"visionModelId": cur.Vision,
	})
}

// GET /api/v1/getCurrentLanguage
func (s *Server) handleGetCurrentLanguage(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"currentLanguage": s.Session.Get()})
}

// GET /api/v1/creatorDna/getAvailableCreatorDnaLists
func (s *Server) handleGetCreatorLists(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"creatorDnaLists": dna.Corpora()})
}

// GET /api/v1/creatorDna/getCurrentCreatorDnaList
func (s *Server) handleGetCurrentCreatorList(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"currentCreatorDnaListFile": s.Service.Corpus().Get()})
}
