package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// TranscriptsConfig tells the loader where transcripts live.
type TranscriptsConfig struct {
	Dir        string   `yaml:"dir" toml:"dir" validate:"required"`
	Extensions []string `yaml:"extensions" toml:"extensions" validate:"dive,startswith=."`
}

// ChunkerConfig configures how transcripts are split into chunks.
type ChunkerConfig struct {
	Type       string `yaml:"type" toml:"type" validate:"oneof=timestamp blank_line sentence pattern"`
	MaxChars   int    `yaml:"max_chars" toml:"max_chars" validate:"gte=1"`
	Pattern    string `yaml:"pattern,omitempty" toml:"pattern,omitempty" validate:"required_if=Type pattern"`
	SplitAfter bool   `yaml:"split_after,omitempty" toml:"split_after,omitempty"`
}

// OllamaConfig holds connection details for a native Ollama endpoint.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	Model       string `yaml:"model" toml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size,omitempty" toml:"batch_size,omitempty" validate:"gte=0"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size,omitempty" toml:"batch_size,omitempty" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type" toml:"type" validate:"oneof=ollama openai tfidf"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty" toml:"ollama,omitempty" validate:"required_if=Type ollama"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty" toml:"openai,omitempty" validate:"required_if=Type openai"`
}

// RetrieverConfig sets how many chunks back each answer.
type RetrieverConfig struct {
	TopK int `yaml:"top_k" toml:"top_k" validate:"gte=1"`
}

// GeneratorConfig selects the answer generator and its sampling settings.
type GeneratorConfig struct {
	Type        string        `yaml:"type" toml:"type" validate:"oneof=ollama openai"`
	Temperature float64       `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	TopP        float64       `yaml:"top_p" toml:"top_p" validate:"gte=0,lte=1"`
	MaxTokens   int           `yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
	Ollama      *OllamaConfig `yaml:"ollama,omitempty" toml:"ollama,omitempty" validate:"required_if=Type ollama"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty" toml:"openai,omitempty" validate:"required_if=Type openai"`
}

// SummarizerConfig selects and configures the corpus overview.
type SummarizerConfig struct {
	Type         string `yaml:"type" toml:"type" validate:"oneof=frequency none"`
	MaxSentences int    `yaml:"max_sentences" toml:"max_sentences" validate:"gte=0"`
}

// UIConfig selects the interactive surface.
type UIConfig struct {
	Mode         string   `yaml:"mode" toml:"mode" validate:"oneof=plain tui"`
	ExitCommands []string `yaml:"exit_commands" toml:"exit_commands" validate:"min=1,dive,required"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" toml:"format" validate:"oneof=console json"`
	// File receives log output. Empty means stderr, except in tui mode
	// where logs go to transcript-qa.log in the temp directory.
	File string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Transcripts TranscriptsConfig `yaml:"transcripts" toml:"transcripts"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	Retriever   RetrieverConfig   `yaml:"retriever" toml:"retriever"`
	Generator   GeneratorConfig   `yaml:"generator" toml:"generator"`
	Summarizer  SummarizerConfig  `yaml:"summarizer" toml:"summarizer"`
	UI          UIConfig          `yaml:"ui" toml:"ui"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. Files ending in .toml are decoded as TOML, all others as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := defaults()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml and ./config.toml first, then
// ~/.config/transcript-qa/config.yaml. If none exists, it writes defaults to
// the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, p := range []string{"config.yaml", "config.toml"} {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints after defaults have been applied.
func Validate(cfg *AppConfig) error {
	return validate.Struct(cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "transcript-qa", "config.yaml"), nil
}

// Default returns the built-in configuration: timestamp chunks of 500
// characters, all-minilm embeddings and llama3.2:3b answers from a local
// Ollama, three chunks per answer.
func Default() *AppConfig {
	cfg := defaults()
	applyConfigDefaults(cfg)
	return cfg
}

// defaults holds the scalar settings a config file is decoded over, so that
// omitted keys keep their defaults and explicit zeros survive.
func defaults() *AppConfig {
	return &AppConfig{
		Transcripts: TranscriptsConfig{Dir: "transcripts", Extensions: []string{".txt"}},
		Chunker:     ChunkerConfig{Type: "timestamp", MaxChars: 500},
		Embedder:    EmbedderConfig{Type: "ollama"},
		Retriever:   RetrieverConfig{TopK: 3},
		Generator:   GeneratorConfig{Type: "ollama", Temperature: 0.1, TopP: 0.9, MaxTokens: 200},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		UI:          UIConfig{Mode: "plain"},
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Transcripts.Dir == "" {
		cfg.Transcripts.Dir = "transcripts"
	}
	if len(cfg.Transcripts.Extensions) == 0 {
		cfg.Transcripts.Extensions = []string{".txt"}
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "timestamp"
	}
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 500
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(cfg.Embedder.Ollama, "all-minilm", 30)
		if cfg.Embedder.Ollama.BatchSize == 0 {
			cfg.Embedder.Ollama.BatchSize = 32
		}
	case "openai":
		if cfg.Embedder.OpenAI != nil {
			applyOpenAIDefaults(cfg.Embedder.OpenAI, "all-minilm", 30)
			if cfg.Embedder.OpenAI.BatchSize == 0 {
				cfg.Embedder.OpenAI.BatchSize = 32
			}
		}
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
	switch cfg.Generator.Type {
	case "ollama":
		if cfg.Generator.Ollama == nil {
			cfg.Generator.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(cfg.Generator.Ollama, "llama3.2:3b", 0)
	case "openai":
		if cfg.Generator.OpenAI != nil {
			applyOpenAIDefaults(cfg.Generator.OpenAI, "llama3.2:3b", 0)
		}
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.UI.Mode == "" {
		cfg.UI.Mode = "plain"
	}
	if len(cfg.UI.ExitCommands) == 0 {
		cfg.UI.ExitCommands = []string{"quit", "exit", "q"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// applyOllamaDefaults leaves BaseURL empty so that OLLAMA_HOST can apply.
func applyOllamaDefaults(c *OllamaConfig, model string, timeoutSecs int) {
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434/v1"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}
