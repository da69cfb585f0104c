package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"branddna/pkg/apierr"
	"branddna/pkg/orchestrate"
	"branddna/pkg/utils"
)

// maxFiles bounds the uploads accepted by a single request.
const maxFiles = 5

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFiles reads the uploaded files under any of the given field names.
// Requests that are not multipart carry no files.
func formFiles(c echo.Context, fields ...string) ([]orchestrate.File, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}

	var headers []*multipart.FileHeader
	for _, f := range fields {
		headers = append(headers, form.File[f]...)
	}
	if len(headers) > maxFiles {
		return nil, apierr.InvalidInput(fmt.Sprintf("at most %d files may be uploaded", maxFiles))
	}

	files := make([]orchestrate.File, 0, len(headers))
	for _, h := range headers {
		f, err := readFile(h)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(h *multipart.FileHeader) (orchestrate.File, error) {
	src, err := h.Open()
	if err != nil {
		return orchestrate.File{}, fmt.Errorf("open upload %q: %w", h.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return orchestrate.File{}, fmt.Errorf("read upload %q: %w", h.Filename, err)
	}
	mime := h.Header.Get(echo.HeaderContentType)
	if mime == "" || mime == echo.MIMEOctetStream {
		mime = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 && !strings.HasPrefix(mime, "text/") {
		mime = strings.TrimSpace(mime[:i])
	}
	return orchestrate.File{Name: utils.SanitizeFilename(h.Filename), MIMEType: mime, Data: data}, nil
}

type transcriptVideo struct {
	Transcript []struct {
		Text string `json:"text"`
	} `json:"transcript"`
}

// parseTranscripts flattens the transcripts form value into one string per
// video, joining the caption segments with spaces.
func parseTranscripts(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var videos []transcriptVideo
	if err := json.Unmarshal([]byte(raw), &videos); err != nil {
		return nil, apierr.InvalidInput("Invalid transcripts format")
	}
	return flatten(videos), nil
}

func flatten(videos []transcriptVideo) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		parts := make([]string, 0, len(v.Transcript))
		for _, seg := range v.Transcript {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return out
}

// pathParam returns a decoded path parameter.
func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if d, err := url.PathUnescape(v); err == nil {
		return d
	}
	return v
}

// rawJSON turns a form value holding JSON into a raw message, quoting it
// when it is plain text.
func rawJSON(v string) json.RawMessage {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if json.Valid([]byte(v)) {
		return json.RawMessage(v)
	}
	b, _ := json.Marshal(v)
	return b
}
