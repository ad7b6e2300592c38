// Package llm defines the language-model provider boundary: chat
// completions for routing, table selection, SQL generation and insights,
// and text embeddings for example similarity lookup.
package llm

import "context"

// Client produces a single completion for a prompt. Implementations run
// at the temperature fixed in configuration (0 in production, for
// reproducibility of generated SQL).
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder maps text to a dense vector for semantic similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
