package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"transcriptqa/internal/generator"
	"transcriptqa/internal/llmerr"
)

// Generator uses an OpenAI-compatible chat completions endpoint, such as
// Ollama's /v1 or a llama.cpp server.
type Generator struct {
	api   sdk.Client
	model string
	opts  generator.Options
}

// Config configures the chat completions generator.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	Options   generator.Options
}

// NewGenerator builds the client with SDK retries disabled.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai generator model is required")
	}
	key := "ollama"
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/") + "/"),
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Generator{api: sdk.NewClient(opts...), model: cfg.Model, opts: cfg.Options}, nil
}

// Name returns the identifier of this generator.
func (g *Generator) Name() string { return "openai/" + g.model }

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate sends the prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(g.model),
		Messages:    []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(prompt)},
		Temperature: sdk.Float(g.opts.Temperature),
		TopP:        sdk.Float(g.opts.TopP),
	}
	if g.opts.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(g.opts.MaxTokens))
	}
	resp, err := g.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", llmerr.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	answer := generator.CleanAnswer(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("model returned an empty answer")
	}
	return answer, nil
}
