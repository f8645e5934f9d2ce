package llm

import (
	"context"
)

// Client is the narrow text-generation contract the analytics and
// breakdown layers depend on. A nil Client is a valid configuration:
// every caller must degrade to its template fallback.
type Client interface {
	// Name identifies the provider for generatedBy fields.
	Name() string
	// GenerateText returns plain prose for a prompt.
	GenerateText(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	// GenerateJSON asks for a JSON object and decodes it into out.
	GenerateJSON(ctx context.Context, system, prompt string, out any) error
}

// Embedder produces vector embeddings for knowledge-graph ingestion.
// Like Client, nil disables the feature rather than failing it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
