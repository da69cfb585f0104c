package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"branddna/pkg/apierr"
	"branddna/pkg/dna"
	"branddna/pkg/language"
	"branddna/pkg/orchestrate"
	"branddna/pkg/schema"
)

// brandDoc is a stored brand as the client sees it.
type brandDoc struct {
	Key           string            `json:"key"`
	BrandName     string            `json:"brandName"`
	BrandColors   []string          `json:"brandColors"`
	BrandAnalysis []schema.Section  `json:"brandAnalysis"`
	Language      language.Language `json:"language"`
}

func brandFromView(v dna.View) brandDoc {
	name := v.DisplayName
	if name == "" {
		name = v.Key
	}
	colors := v.BrandColors
	if colors == nil {
		colors = []string{}
	}
	return brandDoc{
		Key:           v.Key,
		BrandName:     name,
		BrandColors:   colors,
		BrandAnalysis: v.Fields,
		Language:      v.Language,
	}
}

// POST /api/v1/brandDna/getBrandDNA
func (s *Server) handleGetBrandDNA(c echo.Context) error {
	files, err := formFiles(c, "file", "files")
	if err != nil {
		return err
	}

	var name, lang string
	if isMultipart(c) {
		name, lang = c.FormValue("brandName"), c.FormValue("language")
	} else {
		var req struct {
			BrandName string `json:"brandName"`
			Language  string `json:"language"`
		}
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
		}
		name, lang = req.BrandName, req.Language
	}

	result, err := s.Service.BrandDNA(c.Request().Context(), orchestrate.BrandInput{
		BrandName: name,
		Files:     files,
		Language:  s.lang(c, lang),
	})
	if err != nil {
		return err
	}
	// Key is the record the result was stored under; the model may spell
	// the brand name differently.
	return c.JSON(http.StatusOK, struct {
		Key string `json:"key"`
		schema.BrandDNA
	}{strings.TrimSpace(name), result})
}

// GET /api/v1/brandDna/getDNAs
func (s *Server) handleGetBrandDNAs(c echo.Context) error {
	views, err := s.Brands.List(c.Request().Context(), s.lang(c, ""))
	if err != nil {
		return err
	}
	out := make([]brandDoc, 0, len(views))
	for _, v := range views {
		out = append(out, brandFromView(v))
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/v1/brandDna/:brandName
func (s *Server) handleGetBrand(c echo.Context) error {
	v, err := s.Brands.Get(c.Request().Context(), pathParam(c, "brandName"), s.lang(c, ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brandFromView(v))
}

type saveBrandReq struct {
	// Key names the stored record; it defaults to the brand name.
	Key      string           `json:"key"`
	DNA      *schema.BrandDNA `json:"dna"`
	Language string           `json:"language"`
}

// POST /api/v1/brandDna/saveDNA
func (s *Server) handleSaveBrandDNA(c echo.Context) error {
	var req saveBrandReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.DNA == nil {
		return apierr.MissingField("dna")
	}
	name := strings.TrimSpace(req.DNA.BrandName)
	if name == "" {
		return apierr.MissingField("brandName")
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = name
	}

	_, err := s.Brands.Save(c.Request().Context(), dna.Draft{
		Key:         key,
		DisplayName: name,
		Fields:      req.DNA.BrandAnalysis,
		BrandColors: req.DNA.BrandColors,
	}, s.lang(c, req.Language), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Brand DNA saved successfully.",
	})
}

// DELETE /api/v1/brandDna/deleteDNA/:brandName
func (s *Server) handleDeleteBrandDNA(c echo.Context) error {
	name := strings.TrimSpace(pathParam(c, "brandName"))
	if name == "" {
		return apierr.MissingField("brandName")
	}
	if err := s.Brands.Delete(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Brand DNA deleted successfully.",
	})
}

type brandBody struct {
	BrandName     string           `json:"brandName"`
	BrandColors   []string         `json:"brandColors"`
	BrandAnalysis []schema.Section `json:"brandAnalysis"`
	Language      string           `json:"language"`
}

// POST /api/v1/brandDna/create
func (s *Server) handleCreateBrandDNA(c echo.Context) error {
	var req brandBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	name := strings.TrimSpace(req.BrandName)
	if name == "" {
		return apierr.MissingField("brandName")
	}
	rec, err := s.Brands.Create(c.Request().Context(), dna.Draft{
		Key:         name,
		DisplayName: name,
		Fields:      req.BrandAnalysis,
		BrandColors: req.BrandColors,
	}, s.lang(c, req.Language), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Brand DNA created successfully",
		"id":      rec.Key,
	})
}

// PUT /api/v1/brandDna/:brandName updates only the fields present in the body.
func (s *Server) handleUpdateBrandDNA(c echo.Context) error {
	key := strings.TrimSpace(pathParam(c, "brandName"))
	if key == "" {
		return apierr.MissingField("brandName")
	}
	var req brandBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	_, err := s.Brands.Update(c.Request().Context(), dna.Draft{
		Key:         key,
		DisplayName: req.BrandName,
		Fields:      req.BrandAnalysis,
		BrandColors: req.BrandColors,
	}, s.lang(c, req.Language), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Brand DNA %q updated successfully.", key),
	})
}
