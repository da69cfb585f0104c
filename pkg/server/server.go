package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/orchestrate"
	"branddna/pkg/utils"
)

type Deps struct {
	Service  *orchestrate.Service
	Models   *models.Registry
	Brands   *dna.Store
	Creators *dna.Store
	Session  *language.Session
}

type Options struct {
	// BodyLimit caps request bodies, in echo's size notation ("100M").
	BodyLimit   string
	CORSOrigins []string
}

type Server struct {
	Echo     *echo.Echo
	Service  *orchestrate.Service
	Models   *models.Registry
	Brands   *dna.Store
	Creators *dna.Store
	Session  *language.Session
	Ctx      context.Context
}

func NewServer(ctx context.Context, d Deps, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if opts.BodyLimit == "" {
		opts.BodyLimit = "100M"
	}
	if d.Session == nil {
		d.Session = language.NewSession(language.English)
	}

	s := &Server{
		Echo:     e,
		Service:  d.Service,
		Models:   d.Models,
		Brands:   d.Brands,
		Creators: d.Creators,
		Session:  d.Session,
		Ctx:      ctx,
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: opts.CORSOrigins}))
	} else {
		e.Use(middleware.CORS())
	}
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(s.withSelection)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api/v1")
	api.GET("", s.handleGetRoot)

	ai := api.Group("/aiModels")
	ai.GET("/getAvailableModels", s.handleGetAvailableModels)
	ai.GET("/getCurrentModels", s.handleGetCurrentModels)
	ai.POST("/setModel", s.handleSetModel)

	api.GET("/getCurrentLanguage", s.handleGetCurrentLanguage)
	api.POST("/setCurrentLanguage", s.handleSetCurrentLanguage)
	api.POST("/translate", s.handleTranslate)

	brand := api.Group("/brandDna")
	brand.POST("/getBrandDNA", s.handleGetBrandDNA)
	brand.GET("/getDNAs", s.handleGetBrandDNAs)
	brand.POST("/saveDNA", s.handleSaveBrandDNA)
	brand.DELETE("/deleteDNA/:brandName", s.handleDeleteBrandDNA)
	brand.POST("/create", s.handleCreateBrandDNA)
	brand.GET("/:brandName", s.handleGetBrand)
	brand.PUT("/:brandName", s.handleUpdateBrandDNA)

	creator := api.Group("/creatorDna")
	creator.POST("/analyzeChannel", s.handleAnalyzeChannel)
	creator.GET("/getCreatorDNAs", s.handleGetCreatorDNAs)
	creator.POST("/saveCreatorDNA", s.handleSaveCreatorDNA)
	creator.DELETE("/deleteCreatorDNA/:channelName", s.handleDeleteCreatorDNA)
	creator.POST("/getChannelStats", s.handleGetChannelStats)
	creator.GET("/getAvailableCreatorDnaLists", s.handleGetCreatorLists)
	creator.GET("/getCurrentCreatorDnaList", s.handleGetCurrentCreatorList)
	creator.POST("/setCurrentCreatorDnaList", s.handleSetCurrentCreatorList)
	creator.GET("/:channelName", s.handleGetCreator)

	api.POST("/generateImages", s.handleImageConcepts)
	api.POST("/generateVideoConcepts", s.handleVideoConcepts)
	api.POST("/generateStoryboard", s.handleStoryboard)
	api.POST("/regenerateStoryboardFrame", s.handleRegenerateFrame)
	api.POST("/reviewStoryboard", s.handleReviewStoryboard)
	api.POST("/getMatch", s.handleMatch)
	api.POST("/regenerateContentIdeas", s.handleRegenerateIdeas)
	api.POST("/generateImagesFromPrompt", s.handleImagesFromPrompt)
	api.POST("/generateStoryboardImages", s.handleStoryboardImages)
	api.POST("/editImage", s.handleEditImage)
	api.POST("/transcripts/getChannelTranscripts", s.handleChannelTranscripts)

	// Unversioned paths kept for older clients.
	s.Echo.POST("/editImage", s.handleEditImage)
	s.Echo.POST("/transcripts/getChannelTranscripts", s.handleChannelTranscripts)
}

// withSelection snapshots the current model selection into the request
// context so a concurrent setModel does not change a running pipeline.
func (s *Server) withSelection(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Models != nil {
			req := c.Request()
			c.SetRequest(req.WithContext(models.WithSelection(req.Context(), s.Models.Current())))
		}
		return next(c)
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, apierr.Public(err)
	var ae *apierr.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ae):
		status = apierr.Status(err)
	case errors.As(err, &he):
		status = he.Code
		msg = fmt.Sprint(he.Message)
		if he.Internal != nil {
			err = he.Internal
		}
	}

	logger := log.With("method", c.Request().Method, "path", c.Path(), "status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, utils.ErrJSON(msg))
	}
	if err != nil {
		log.Error("writing error response", "error", err)
	}
}

// lang resolves the request language from the body value, the language
// query parameter, then the session default.
func (s *Server) lang(c echo.Context, body string) language.Language {
	return language.Resolve(body, c.QueryParam("language"), s.Session.Get())
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")
	return s.Echo.Shutdown(ctx)
}
