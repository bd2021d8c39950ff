// Package ollama is a small client for the native Ollama HTTP API shared by
// the embedding and generation backends.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"transcriptqa/internal/domain"
)

// DefaultBaseURL is where a local Ollama listens unless OLLAMA_HOST says otherwise.
const DefaultBaseURL = "http://localhost:11434"

// Client talks to one Ollama instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config configures the Ollama client. A zero Timeout means no timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient normalises the base URL (a trailing /v1 is dropped) and builds the client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: NormalizeBaseURL(cfg.BaseURL),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// NormalizeBaseURL resolves an empty URL from OLLAMA_HOST or the default,
// adds a missing scheme and strips "/" and "/v1" suffixes.
func NormalizeBaseURL(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = DefaultBaseURL
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimSuffix(host, "/v1")
	return host
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// PostJSON sends body to path and decodes the JSON reply into out.
// Transport failures and 5xx replies wrap domain.ErrServiceUnavailable;
// a missing model wraps domain.ErrModelNotFound.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// ModelInfo is one entry of /api/tags.
type ModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Models lists the models the instance has pulled.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var tags tagsResponse
	if err := c.do(req, &tags); err != nil {
		return nil, err
	}
	return tags.Models, nil
}

// CheckModel reports domain.ErrModelNotFound when name is not pulled.
// A name without a tag matches its ":latest" variant.
func (c *Client) CheckModel(ctx context.Context, name string) error {
	models, err := c.Models(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if sameModel(m.Name, name) || sameModel(m.Model, name) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrModelNotFound, name)
}

func sameModel(have, want string) bool {
	if have == "" {
		return false
	}
	if have == want {
		return true
	}
	return !strings.Contains(want, ":") && have == want+":latest"
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w at %s: %w", domain.ErrServiceUnavailable, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(payload))
	var e errorResponse
	if json.Unmarshal(payload, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	switch {
	case resp.StatusCode == http.StatusNotFound, strings.Contains(strings.ToLower(msg), "not found"):
		return fmt.Errorf("%w: %s", domain.ErrModelNotFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", domain.ErrServiceUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, msg)
	}
}
