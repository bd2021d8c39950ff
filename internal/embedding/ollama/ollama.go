package ollama

import (
	"context"
	"fmt"
	"time"

	ollamaapi "transcriptqa/internal/ollama"
)

// Embedder calls Ollama's native /api/embed endpoint. It implements the
// embedding.Embedder interface.
type Embedder struct {
	client    *ollamaapi.Client
	model     string
	batchSize int
	dimension int
}

// Config configures the Ollama embedder.
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewEmbedder creates an embedder for the given model, defaulting to all-minilm.
func NewEmbedder(cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Embedder{
		client:    ollamaapi.NewClient(ollamaapi.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "ollama/" + e.model }

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.model }

// Prepare is a no-op; the dimension is learned from the first response.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed sends texts in batches and returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		var resp embedResponse
		if err := e.client.PostJSON(ctx, "/api/embed", embedRequest{Model: e.model, Input: texts[start:end]}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), end-start)
		}
		for _, v := range resp.Embeddings {
			if err := e.checkDimension(v); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single question.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) checkDimension(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("empty embedding")
	}
	if e.dimension == 0 {
		e.dimension = len(v)
		return nil
	}
	if len(v) != e.dimension {
		return fmt.Errorf("embedding dimension changed from %d to %d", e.dimension, len(v))
	}
	return nil
}
