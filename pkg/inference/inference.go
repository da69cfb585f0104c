package inference

import (
	"context"
)

// Part is one piece of a prompt: either text or an inline file.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

func Text(s string) Part { return Part{Text: s} }

func File(data []byte, mime string) Part { return Part{Data: data, MIMEType: mime} }

func (p Part) IsFile() bool { return len(p.Data) > 0 }

type Config struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
	// JSON requests a JSON object response. Schema and SchemaName are
	// passed to backends that support structured output.
	JSON       bool
	Schema     any
	SchemaName string
	// Grounding enables web search grounding where the backend offers it.
	Grounding bool
}

type Request struct {
	Model  string
	System string
	Parts  []Part
	Config Config
}

// Generator produces raw text for a request. Implementations return
// apierr typed errors for backend failures.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

type Image struct {
	Data     []byte
	MIMEType string
}

type ImageRequest struct {
	Model       string
	Prompt      string
	Count       int
	AspectRatio string
}

type Imager interface {
	GenerateImages(ctx context.Context, req *ImageRequest) ([]Image, error)
}

type EditRequest struct {
	Model       string
	Image       []byte
	MIMEType    string
	Instruction string
}

// Editor rewrites an existing image following a text instruction.
type Editor interface {
	EditImage(ctx context.Context, req *EditRequest) (Image, error)
}
