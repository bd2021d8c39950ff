package ollama

import (
	"context"
	"errors"
	"time"

	"transcriptqa/internal/generator"
	ollamaapi "transcriptqa/internal/ollama"
)

// Generator calls Ollama's native /api/generate endpoint without streaming.
type Generator struct {
	client *ollamaapi.Client
	model  string
	opts   generator.Options
}

// Config configures the Ollama generator. A zero Timeout waits indefinitely.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Options generator.Options
}

// NewGenerator creates a generator for the given model, defaulting to llama3.2:3b.
func NewGenerator(cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = "llama3.2:3b"
	}
	return &Generator{
		client: ollamaapi.NewClient(ollamaapi.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}),
		model:  cfg.Model,
		opts:   cfg.Options,
	}
}

// Name returns the identifier of this generator.
func (g *Generator) Name() string { return "ollama/" + g.model }

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// BaseURL returns the Ollama endpoint in use.
func (g *Generator) BaseURL() string { return g.client.BaseURL() }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate makes exactly one request; failures are not retried.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Model: g.model, Prompt: prompt, Options: g.options()}
	var resp generateResponse
	if err := g.client.PostJSON(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	answer := generator.CleanAnswer(resp.Response)
	if answer == "" {
		return "", errors.New("model returned an empty answer")
	}
	return answer, nil
}

// CheckModel asks /api/tags whether the model has been pulled.
func (g *Generator) CheckModel(ctx context.Context) error {
	return g.client.CheckModel(ctx, g.model)
}

func (g *Generator) options() map[string]any {
	opts := map[string]any{
		"temperature": g.opts.Temperature,
		"top_p":       g.opts.TopP,
	}
	if g.opts.MaxTokens > 0 {
		opts["num_predict"] = g.opts.MaxTokens
	}
	return opts
}
