package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"branddna/pkg/inference"
	"branddna/pkg/orchestrate"
	"branddna/pkg/youtube"
)

func TestGetBrandDNAReturnsStorageKey(t *testing.T) {
	f := newFixture(t)

	// The model spells the brand "Acme"; the record is stored under the
	// requested name.
	code, body := f.json(t, http.MethodPost, "/api/v1/brandDna/getBrandDNA", `{"brandName":" acme "}`)
	if code != http.StatusOK {
		t.Fatalf("getBrandDNA = %d %s", code, body)
	}
	got := decode[map[string]any](t, body)
	if got["key"] != "acme" || got["brandName"] != "Acme" {
		t.Fatalf("response = %s", body)
	}

	code, body = f.json(t, http.MethodPost, "/api/v1/brandDna/saveDNA",
		`{"key":"acme","dna":{"brandName":"Acme","brandColors":["#445566"],"brandAnalysis":[{"sectionTitle":"BrandDNA","sectionBody":"edited"}]}}`)
	if code != http.StatusOK {
		t.Fatalf("saveDNA = %d %s", code, body)
	}

	_, body = f.json(t, http.MethodGet, "/api/v1/brandDna/getDNAs", "")
	list := decode[[]brandDoc](t, body)
	if len(list) != 1 {
		t.Fatalf("records after save = %d: %s", len(list), body)
	}
	if list[0].Key != "acme" || list[0].BrandColors[0] != "#445566" || list[0].BrandAnalysis[0].Body != "edited" {
		t.Fatalf("saved record = %+v", list[0])
	}
}

func TestCreateAndUpdateBrandDNA(t *testing.T) {
	f := newFixture(t)
	const created = `{"brandName":"Acme","brandColors":["#112233"],"brandAnalysis":[{"sectionTitle":"BrandDNA","sectionBody":"bold"}]}`

	code, body := f.json(t, http.MethodPost, "/api/v1/brandDna/create", created)
	if code != http.StatusCreated || decode[map[string]any](t, body)["id"] != "Acme" {
		t.Fatalf("create = %d %s", code, body)
	}

	code, body = f.json(t, http.MethodPost, "/api/v1/brandDna/create", created)
	if code != http.StatusConflict || decode[map[string]any](t, body)["error"] != `Brand DNA for "Acme" already exists` {
		t.Fatalf("duplicate create = %d %s", code, body)
	}

	if code, body = f.json(t, http.MethodPost, "/api/v1/brandDna/create", `{"brandColors":["#112233"]}`); code != http.StatusBadRequest {
		t.Fatalf("create without name = %d %s", code, body)
	}

	if code, body = f.json(t, http.MethodPut, "/api/v1/brandDna/Nobody", `{"brandColors":["#000000"]}`); code != http.StatusNotFound {
		t.Fatalf("update of missing brand = %d %s", code, body)
	}

	code, body = f.json(t, http.MethodPut, "/api/v1/brandDna/Acme", `{"brandColors":["#000000"]}`)
	if code != http.StatusOK {
		t.Fatalf("update = %d %s", code, body)
	}
	_, body = f.json(t, http.MethodGet, "/api/v1/brandDna/Acme", "")
	got := decode[brandDoc](t, body)
	if got.BrandColors[0] != "#000000" || len(got.BrandAnalysis) != 1 || got.BrandAnalysis[0].Body != "bold" {
		t.Fatalf("after partial update = %+v", got)
	}
}

type fakeEditor struct {
	req *inference.EditRequest
}

func (f *fakeEditor) GenerateImages(context.Context, *inference.ImageRequest) ([]inference.Image, error) {
	return nil, nil
}

func (f *fakeEditor) EditImage(_ context.Context, req *inference.EditRequest) (inference.Image, error) {
	f.req = req
	return inference.Image{Data: []byte("edited " + req.Instruction), MIMEType: "image/png"}, nil
}

func TestEditImage(t *testing.T) {
	ed := &fakeEditor{}
	f := newFixture(t, func(d *orchestrate.Deps) { d.Imager, d.Editor = ed, ed })
	src := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("original"))

	for _, path := range []string{"/api/v1/editImage", "/editImage"} {
		code, body := f.json(t, http.MethodPost, path, `{"imageBase64":"`+src+`","editDescription":"make it blue"}`)
		if code != http.StatusOK {
			t.Fatalf("%s = %d %s", path, code, body)
		}
		want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("edited make it blue"))
		if got := decode[map[string]string](t, body)["editedImageDataUrl"]; got != want {
			t.Fatalf("editedImageDataUrl = %q", got)
		}
	}
	if ed.req.MIMEType != "image/jpeg" || string(ed.req.Image) != "original" {
		t.Fatalf("edit request = %+v", ed.req)
	}

	code, body := f.json(t, http.MethodPost, "/api/v1/editImage", `{"imageBase64":"`+src+`"}`)
	if code != http.StatusBadRequest || decode[map[string]any](t, body)["error"] != "editDescription is required" {
		t.Fatalf("missing description = %d %s", code, body)
	}
}

type fakeTranscripts struct {
	urls []string
}

func (f *fakeTranscripts) Transcripts(_ context.Context, urls []string) ([]youtube.Transcript, error) {
	f.urls = urls
	out := make([]youtube.Transcript, 0, len(urls))
	for _, u := range urls {
		if id := youtube.VideoID(u); id != "" {
			out = append(out, youtube.Transcript{VideoURL: u, Transcript: []youtube.Segment{{Text: "said " + id}}})
		}
	}
	return out, nil
}

func TestChannelTranscripts(t *testing.T) {
	src := &fakeTranscripts{}
	f := newFixture(t, func(d *orchestrate.Deps) { d.Videos = src })

	code, body := f.json(t, http.MethodPost, "/api/v1/transcripts/getChannelTranscripts",
		`{"videoUrls":["https://www.youtube.com/watch?v=abc","not a video"]}`)
	if code != http.StatusOK {
		t.Fatalf("getChannelTranscripts = %d %s", code, body)
	}
	got := decode[struct {
		Success     bool                 `json:"success"`
		Transcripts []youtube.Transcript `json:"transcripts"`
	}](t, body)
	if !got.Success || len(got.Transcripts) != 1 || got.Transcripts[0].Transcript[0].Text != "said abc" {
		t.Fatalf("response = %s", body)
	}
	if len(src.urls) != 2 || !strings.Contains(src.urls[0], "v=abc") {
		t.Fatalf("urls = %v", src.urls)
	}
}
