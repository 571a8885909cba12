package llmprovider

import "context"

// Provider is the capability abstraction every model backend implements.
// The orchestrator, evaluator, and memory subsystem depend on this
// interface only, never on a vendor SDK.
type Provider interface {
	// Chat runs one non-streaming turn.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream runs one streaming turn, sending increments to ch until
	// the context ends or the model finishes. ch is closed by ChatStream.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- ChatChunk) error

	// Embed returns a vector embedding for text. Nothing in this module
	// calls it; the similarity recall bucket ranks by word overlap or
	// through Typesense instead.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Models lists the backend's available models.
	Models(ctx context.Context) ([]ModelInfo, error)

	// ID names this provider instance, e.g. "openai:gpt-4o".
	ID() string
}
