package models

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"branddna/pkg/apierr"
)

type Kind string

const (
	LLM    Kind = "llm"
	Vision Kind = "vision"
)

const defaultEndpoint = "us-central1-aiplatform.googleapis.com"

type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Kind        Kind   `json:"type"`
	// Grounding marks models that accept the Google Search tool.
	Grounding bool `json:"grounding,omitempty"`
}

// Selection is the pair of models a single request runs against.
type Selection struct {
	LLM    string `json:"llm"`
	Vision string `json:"vision"`
}

var Catalog = []Model{
	{ID: "gemini-2.0-flash-001", DisplayName: "Gemini 2.0 Flash 001", Endpoint: defaultEndpoint, Kind: LLM, Grounding: true},
	{ID: "gemini-2.0-flash-thinking-exp-01-21", DisplayName: "Gemini 2.0 Flash Thinking", Endpoint: defaultEndpoint, Kind: LLM},
	{ID: "gemini-2.0-pro-exp-02-05", DisplayName: "Gemini 2.0 Pro", Endpoint: defaultEndpoint, Kind: LLM, Grounding: true},
	{ID: "gemini-2.0-flash-exp", DisplayName: "Gemini 2.0 Flash Experimental", Endpoint: defaultEndpoint, Kind: LLM, Grounding: true},
	{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", Endpoint: defaultEndpoint, Kind: LLM, Grounding: true},
	{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", Endpoint: defaultEndpoint, Kind: LLM, Grounding: true},
	{ID: "imagen-3.0-generate-002", DisplayName: "Imagen 3", Endpoint: defaultEndpoint, Kind: Vision},
	{ID: "imagen-3.0-fast-generate-001", DisplayName: "Imagen 3 Fast", Endpoint: defaultEndpoint, Kind: Vision},
}

var DefaultSelection = Selection{
	LLM:    "gemini-2.0-flash-001",
	Vision: "imagen-3.0-generate-002",
}

// Registry holds the catalog and the default selection new requests start from.
type Registry struct {
	mu      sync.RWMutex
	models  []Model
	current Selection
}

func NewRegistry(models []Model, def Selection) (*Registry, error) {
	r := &Registry{models: slices.Clone(models)}
	if _, err := r.lookup(LLM, def.LLM); err != nil {
		return nil, err
	}
	if _, err := r.lookup(Vision, def.Vision); err != nil {
		return nil, err
	}
	r.current = def
	return r, nil
}

func (r *Registry) Available() []Model {
	return slices.Clone(r.models)
}

func (r *Registry) Current() Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Set changes the default model for kind. Requests already running keep
// the selection they started with.
func (r *Registry) Set(kind Kind, id string) (Model, error) {
	m, err := r.lookup(kind, id)
	if err != nil {
		return Model{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case LLM:
		r.current.LLM = id
	case Vision:
		r.current.Vision = id
	}
	return m, nil
}

func (r *Registry) Lookup(id string) (Model, bool) {
	i := slices.IndexFunc(r.models, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false
	}
	return r.models[i], true
}

func (r *Registry) lookup(kind Kind, id string) (Model, error) {
	if kind != LLM && kind != Vision {
		return Model{}, apierr.InvalidInput(fmt.Sprintf("Invalid model type %q", kind))
	}
	m, ok := r.Lookup(id)
	if !ok || m.Kind != kind {
		return Model{}, apierr.InvalidInput(fmt.Sprintf("Invalid %s model: %s", kind, id))
	}
	return m, nil
}

type ctxKey struct{}

func WithSelection(ctx context.Context, sel Selection) context.Context {
	return context.WithValue(ctx, ctxKey{}, sel)
}

// FromContext returns the selection snapshotted for the request, or
// DefaultSelection when none was stored.
func FromContext(ctx context.Context) Selection {
	if sel, ok := ctx.Value(ctxKey{}).(Selection); ok {
		return sel
	}
	return DefaultSelection
}
