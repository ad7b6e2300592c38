// Package examples holds the curated question/SQL example corpus and
// selects the most relevant examples for a question by embedding
// similarity.
package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/observability"
)

// Example pairs a natural-language question with its reference SQL and
// a short description of the tables and columns it touches.
type Example struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Context  string `json:"context"`
}

// Store embeds the corpus once at startup and answers similarity
// lookups from memory. It is immutable after NewStore and safe for
// concurrent use.
type Store struct {
	embedder llm.Embedder
	examples []Example
	vectors  [][]float32
}

// NewStore embeds every example question. A failed embedding aborts
// startup rather than leaving a silently degraded selector.
func NewStore(ctx context.Context, embedder llm.Embedder, corpus []Example) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("example corpus is empty")
	}

	store := &Store{
		embedder: embedder,
		examples: append([]Example(nil), corpus...),
		vectors:  make([][]float32, len(corpus)),
	}
	for i, example := range store.examples {
		if strings.TrimSpace(example.Question) == "" || strings.TrimSpace(example.SQL) == "" {
			return nil, fmt.Errorf("example %d: question and sql are required", i)
		}
		vector, err := embedder.Embed(ctx, example.Question)
		if err != nil {
			return nil, fmt.Errorf("embed example %q: %w", example.Question, err)
		}
		store.vectors[i] = vector
	}
	return store, nil
}

// LoadFile reads a JSON example corpus from disk, used to override the
// built-in corpus per deployment.
func LoadFile(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples file: %w", err)
	}
	var corpus []Example
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse examples file %q: %w", path, err)
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("examples file %q is empty", path)
	}
	return corpus, nil
}

// Select returns the k examples most similar to the question, most
// similar first. Ties keep corpus order so selection stays
// deterministic.
func (s *Store) Select(ctx context.Context, question string, k int) ([]Example, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		observability.ObserveExampleLookup("error")
		return nil, fmt.Errorf("embed question: %w", err)
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(s.examples))
	for i := range s.examples {
		ranked[i] = scored{index: i, score: cosineSimilarity(vector, s.vectors[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index < ranked[b].index
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	selected := make([]Example, 0, k)
	for _, entry := range ranked[:k] {
		selected = append(selected, s.examples[entry.index])
	}
	observability.ObserveExampleLookup("ok")
	return selected, nil
}

// Len reports the corpus size.
func (s *Store) Len() int { return len(s.examples) }

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
