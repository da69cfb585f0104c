package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"branddna/pkg/dna"
	"branddna/pkg/inference"
	"branddna/pkg/kv"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/orchestrate"
	"branddna/pkg/schema"
	"branddna/pkg/translate"
)

// fakeGenerator answers translation prompts by tagging the text and every
// other prompt with reply.
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	requests []*inference.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req *inference.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	text := req.Parts[len(req.Parts)-1].Text
	if strings.HasPrefix(text, "Translate the following text to") {
		_, body, _ := strings.Cut(text, "\n\n")
		return "ES " + body, nil
	}
	return f.reply, nil
}

func (f *fakeGenerator) first(t *testing.T) *inference.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("generator was not called")
	}
	return f.requests[0]
}

type heldSpawner struct {
	mu    sync.Mutex
	tasks []func(ctx context.Context) error
}

func (h *heldSpawner) Submit(_ context.Context, _ string, run func(ctx context.Context) error) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, run)
	return "task", nil
}

func (h *heldSpawner) Run(t *testing.T) {
	t.Helper()
	h.mu.Lock()
	tasks := h.tasks
	h.tasks = nil
	h.mu.Unlock()
	for _, run := range tasks {
		if err := run(models.WithSelection(context.Background(), models.DefaultSelection)); err != nil {
			t.Fatalf("task: %v", err)
		}
	}
}

func brandReply(t *testing.T) string {
	t.Helper()
	var sections []schema.Section
	for _, title := range schema.SectionTitles(schema.Brand, language.English) {
		sections = append(sections, schema.Section{Title: title, Body: title + " body"})
	}
	b, err := json.Marshal(schema.BrandDNA{BrandName: "Acme", BrandColors: []string{"#112233"}, BrandAnalysis: sections})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

type fixture struct {
	srv     *Server
	gen     *fakeGenerator
	spawner *heldSpawner
}

func newFixture(t *testing.T, opts ...func(*orchestrate.Deps)) *fixture {
	t.Helper()
	reg, err := models.NewRegistry(models.Catalog, models.DefaultSelection)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	gen := &fakeGenerator{reply: brandReply(t)}
	spawner := &heldSpawner{}
	tr := translate.New(gen, 0)
	brands := dna.NewStore(kv.NewMemory(), schema.Brand, tr, spawner)
	creators := dna.NewStore(kv.NewMemory(), schema.Creator, tr, spawner)
	deps := orchestrate.Deps{
		Generator:  gen,
		Models:     reg,
		Brands:     brands,
		Creators:   creators,
		Translator: tr,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc := orchestrate.New(deps)
	srv := NewServer(context.Background(), Deps{
		Service:  svc,
		Models:   reg,
		Brands:   brands,
		Creators: creators,
		Session:  language.NewSession(language.English),
	}, Options{})
	return &fixture{srv: srv, gen: gen, spawner: spawner}
}

func (f *fixture) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Echo.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (f *fixture) json(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.do(t, req)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestBrandDNALifecycle(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, multipartRequest(t, "/api/v1/brandDna/getBrandDNA",
		map[string]string{"brandName": "Acme"},
		map[string]string{"notes.txt": "family owned since 1950"}))
	if code != http.StatusOK {
		t.Fatalf("getBrandDNA = %d %s", code, body)
	}
	got := decode[schema.BrandDNA](t, body)
	if len(got.BrandAnalysis) != schema.BrandSections || len(got.BrandColors) < 1 || len(got.BrandColors) > 2 {
		t.Fatalf("brand = %+v", got)
	}

	// The Spanish projection does not exist until the background task runs.
	code, body = f.json(t, http.MethodGet, "/api/v1/brandDna/getDNAs?language=spanish", "")
	if code != http.StatusOK {
		t.Fatalf("getDNAs = %d %s", code, body)
	}
	list := decode[[]brandDoc](t, body)
	if len(list) != 1 || list[0].Language != language.English || list[0].BrandName != "Acme" {
		t.Fatalf("before translation: %+v", list)
	}

	f.spawner.Run(t)

	_, body = f.json(t, http.MethodGet, "/api/v1/brandDna/getDNAs?language=spanish", "")
	list = decode[[]brandDoc](t, body)
	if len(list) != 1 || list[0].Language != language.Spanish {
		t.Fatalf("after translation: %+v", list)
	}
	first := list[0].BrandAnalysis[0]
	if first.Title != "ADN de Marca" || !strings.HasPrefix(first.Body, "ES ") {
		t.Fatalf("translated section = %+v", first)
	}

	code, body = f.json(t, http.MethodGet, "/api/v1/brandDna/Acme", "")
	if code != http.StatusOK || decode[brandDoc](t, body).Language != language.English {
		t.Fatalf("get brand = %d %s", code, body)
	}

	code, body = f.json(t, http.MethodDelete, "/api/v1/brandDna/deleteDNA/Acme", "")
	if code != http.StatusOK {
		t.Fatalf("delete = %d %s", code, body)
	}
	code, body = f.json(t, http.MethodDelete, "/api/v1/brandDna/deleteDNA/Acme", "")
	errBody := decode[map[string]any](t, body)
	if code != http.StatusNotFound || errBody["success"] != false || errBody["error"] != "Brand DNA not found" {
		t.Fatalf("second delete = %d %s", code, body)
	}
}

func TestSaveBrandDNAUsesSessionLanguage(t *testing.T) {
	f := newFixture(t)

	code, body := f.json(t, http.MethodPost, "/api/v1/setCurrentLanguage", `{"language":"spanish"}`)
	if code != http.StatusOK {
		t.Fatalf("setCurrentLanguage = %d %s", code, body)
	}
	_, body = f.json(t, http.MethodGet, "/api/v1/getCurrentLanguage", "")
	if decode[map[string]string](t, body)["currentLanguage"] != "spanish" {
		t.Fatalf("currentLanguage = %s", body)
	}

	code, body = f.json(t, http.MethodPost, "/api/v1/brandDna/saveDNA",
		`{"dna":{"brandName":"Oso","brandColors":["#000000"],"brandAnalysis":[{"sectionTitle":"ADN de Marca","sectionBody":"hola"}]}}`)
	if code != http.StatusOK {
		t.Fatalf("saveDNA = %d %s", code, body)
	}
	_, body = f.json(t, http.MethodGet, "/api/v1/brandDna/Oso", "")
	if got := decode[brandDoc](t, body); got.Language != language.Spanish || got.BrandAnalysis[0].Body != "hola" {
		t.Fatalf("saved brand = %+v", got)
	}

	code, _ = f.json(t, http.MethodPost, "/api/v1/setCurrentLanguage", `{"language":"klingon"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid language = %d", code)
	}
}

func TestModelSelection(t *testing.T) {
	f := newFixture(t)

	_, body := f.json(t, http.MethodGet, "/api/v1/aiModels/getAvailableModels", "")
	avail := decode[map[string][]modelOption](t, body)
	if len(avail["llmModels"]) != 6 || len(avail["visionModels"]) != 2 {
		t.Fatalf("available = %+v", avail)
	}

	for _, tc := range []struct {
		body string
		want int
	}{
		{`{"modelId":"gemini-2.0-flash-thinking-exp-01-21","modelType":"llm"}`, http.StatusOK},
		{`{"modelId":"imagen-3.0-fast-generate-001","modelType":"vision"}`, http.StatusOK},
		{`{"modelId":"imagen-3.0-fast-generate-001","modelType":"llm"}`, http.StatusBadRequest},
		{`{"modelId":"gemini-2.5-pro","modelType":"audio"}`, http.StatusBadRequest},
		{`{"modelType":"llm"}`, http.StatusBadRequest},
	} {
		if code, body := f.json(t, http.MethodPost, "/api/v1/aiModels/setModel", tc.body); code != tc.want {
			t.Fatalf("setModel %s = %d %s", tc.body, code, body)
		}
	}

	_, body = f.json(t, http.MethodGet, "/api/v1/aiModels/getCurrentModels", "")
	cur := decode[map[string]string](t, body)
	if cur["llmModelId"] != "gemini-2.0-flash-thinking-exp-01-21" || cur["visionModelId"] != "imagen-3.0-fast-generate-001" {
		t.Fatalf("current = %+v", cur)
	}

	code, body := f.json(t, http.MethodPost, "/api/v1/brandDna/getBrandDNA", `{"brandName":"Acme"}`)
	if code != http.StatusOK {
		t.Fatalf("getBrandDNA = %d %s", code, body)
	}
	req := f.gen.first(t)
	if req.Model != "gemini-2.0-flash-thinking-exp-01-21" || req.Config.Grounding {
		t.Fatalf("request ran on %q grounding=%v", req.Model, req.Config.Grounding)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
		code int
		msg  string
	}{
		{"invalid json", "/api/v1/generateStoryboard", `{`, http.StatusBadRequest, "invalid json"},
		{"missing field", "/api/v1/generateStoryboard", `{"brandDNA":{"a":1}}`, http.StatusBadRequest, "videoConcept is required"},
		{"prompts not array", "/api/v1/generateStoryboardImages", `{"imagePrompts":"sketch"}`, http.StatusBadRequest, "imagePrompts must be an array"},
		{"no creators", "/api/v1/getMatch", `{"brandDNA":{"brandName":"Acme"}}`, http.StatusBadRequest, "creatorDNAs is required"},
		{"bad match type", "/api/v1/getMatch", `{"brandDNA":{"brandName":"Acme"},"matchType":"random"}`, http.StatusBadRequest, `Invalid match type "random"`},
		{"malformed output", "/api/v1/generateVideoConcepts", `{"prompt":"summer"}`, http.StatusInternalServerError, "model output failed validation"},
		{"no image backend", "/api/v1/generateImagesFromPrompt", `{"prompt":"a cat"}`, http.StatusInternalServerError, "generation backend unavailable"},
		{"too many images", "/api/v1/generateImagesFromPrompt", `{"prompt":"a cat","numberOfImages":5}`, http.StatusBadRequest, "numberOfImages must be between 1 and 4"},
		{"negative images", "/api/v1/generateImagesFromPrompt", `{"prompt":"a cat","numberOfImages":-1}`, http.StatusBadRequest, "numberOfImages must be between 1 and 4"},
		{"no transcript source", "/api/v1/transcripts/getChannelTranscripts", `{"videoUrls":["https://youtu.be/a"]}`, http.StatusInternalServerError, "generation backend unavailable"},
		{"video urls not array", "/transcripts/getChannelTranscripts", `{"videoUrls":"https://youtu.be/a"}`, http.StatusBadRequest, "No valid video URLs provided"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.json(t, http.MethodPost, tc.path, tc.body)
			got := decode[map[string]any](t, body)
			if code != tc.code || got["success"] != false {
				t.Fatalf("%s = %d %s", tc.path, code, body)
			}
			if tc.msg != "" && got["error"] != tc.msg {
				t.Fatalf("error = %v, want %q", got["error"], tc.msg)
			}
		})
	}
}

func TestAnalyzeChannelFlattensTranscripts(t *testing.T) {
	f := newFixture(t)
	var sections []schema.Section
	for _, title := range schema.SectionTitles(schema.Creator, language.English) {
		sections = append(sections, schema.Section{Title: title, Body: "b"})
	}
	reply, _ := json.Marshal(schema.ChannelAnalysis{ChannelAnalysis: sections})
	f.gen.reply = string(reply)

	code, body := f.do(t, multipartRequest(t, "/api/v1/creatorDna/analyzeChannel", map[string]string{
		"channelName": "Cooking With Ana",
		"transcripts": `[{"transcript":[{"text":"hello"},{"text":"world"}]},{"transcript":[{"text":"second"}]}]`,
	}, nil))
	if code != http.StatusOK {
		t.Fatalf("analyzeChannel = %d %s", code, body)
	}
	prompt := f.gen.first(t).Parts[0].Text
	if !strings.Contains(prompt, "hello world\n\n=== NEXT VIDEO ===\n\nsecond") {
		t.Fatalf("prompt = %q", prompt)
	}

	code, body = f.json(t, http.MethodGet, "/api/v1/creatorDna/Cooking%20With%20Ana", "")
	if code != http.StatusOK {
		t.Fatalf("creator document = %d %s", code, body)
	}
	if rec := decode[dna.Record](t, body); len(rec.Translations) != 1 || rec.BaseLanguage != language.English {
		t.Fatalf("record = %+v", rec)
	}

	code, _ = f.do(t, multipartRequest(t, "/api/v1/creatorDna/analyzeChannel", map[string]string{
		"channelName": "Cooking With Ana",
		"transcripts": "not json",
	}, nil))
	if code != http.StatusBadRequest {
		t.Fatalf("bad transcripts = %d", code)
	}
}

func TestCreatorListSelection(t *testing.T) {
	f := newFixture(t)

	code, body := f.json(t, http.MethodPost, "/api/v1/creatorDna/setCurrentCreatorDnaList", `{"creatorDnaListFile":"Spanish Creators"}`)
	if code != http.StatusOK {
		t.Fatalf("set list = %d %s", code, body)
	}
	_, body = f.json(t, http.MethodGet, "/api/v1/creatorDna/getCurrentCreatorDnaList", "")
	if decode[map[string]string](t, body)["currentCreatorDnaListFile"] != "Spanish Creators" {
		t.Fatalf("current list = %s", body)
	}
	if code, _ := f.json(t, http.MethodPost, "/api/v1/creatorDna/setCurrentCreatorDnaList", `{"creatorDnaListFile":"nope.json"}`); code != http.StatusBadRequest {
		t.Fatalf("invalid list = %d", code)
	}
}
