package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"transcriptqa/internal/chunker"
	"transcriptqa/internal/config"
	"transcriptqa/internal/console"
	"transcriptqa/internal/domain"
	"transcriptqa/internal/embedding"
	ollamaemb "transcriptqa/internal/embedding/ollama"
	openaiemb "transcriptqa/internal/embedding/openai"
	"transcriptqa/internal/embedding/tfidf"
	"transcriptqa/internal/generator"
	ollamagen "transcriptqa/internal/generator/ollama"
	openaigen "transcriptqa/internal/generator/openai"
	"transcriptqa/internal/logging"
	"transcriptqa/internal/service"
	"transcriptqa/internal/summarizer"
	"transcriptqa/internal/tui"
	"transcriptqa/internal/vectorstore/memory"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML or TOML config file (optional; uses ~/.config/transcript-qa/config.yaml if not provided)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: transcript-qa [--config=config.yaml] [transcripts-dir]")
		flag.PrintDefaults()
	}
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if flag.NArg() > 0 {
		cfg.Transcripts.Dir = flag.Arg(0)
	}
	logOut, closeLog, err := logOutput(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logging.InitWriter(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := assemble(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid component configuration")
	}

	fmt.Printf("Loading transcripts from %s/ ...\n", cfg.Transcripts.Dir)
	report, err := svc.Load(ctx, cfg.Transcripts.Dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, svc.Describe(err))
		os.Exit(1)
	}
	if report.ModelWarning != nil {
		fmt.Fprintln(os.Stderr, svc.Describe(report.ModelWarning))
	}

	switch cfg.UI.Mode {
	case "tui":
		m := tui.New(ctx, svc, report, cfg.UI.ExitCommands)
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			if ctx.Err() == nil {
				log.Fatal().Err(err).Msg("terminal UI failed")
			}
		}
	default:
		console.PrintReport(os.Stdout, report)
		err := console.Run(ctx, svc, os.Stdin, os.Stdout, console.Options{ExitCommands: cfg.UI.ExitCommands, ShowSources: true})
		if err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("question loop failed")
		}
	}
}

// logOutput picks the log destination. The terminal UI owns the screen, so
// in tui mode logs go to a file even when none is configured.
func logOutput(cfg *config.AppConfig) (io.Writer, func() error, error) {
	path := cfg.Log.File
	if path == "" && cfg.UI.Mode == "tui" {
		path = filepath.Join(os.TempDir(), "transcript-qa.log")
	}
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// assemble builds the QA service from configuration.
func assemble(cfg *config.AppConfig) (*service.QAService, error) {
	boundary, err := chunker.BoundaryFor(cfg.Chunker.Type, cfg.Chunker.Pattern, cfg.Chunker.SplitAfter)
	if err != nil {
		return nil, err
	}
	var ch domain.Chunker = chunker.NewTranscriptChunker(cfg.Chunker.MaxChars, boundary)

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "ollama", "":
		oc := cfg.Embedder.Ollama
		if oc == nil {
			oc = &config.OllamaConfig{}
		}
		emb = ollamaemb.NewEmbedder(ollamaemb.Config{
			BaseURL:   oc.BaseURL,
			Model:     oc.Model,
			Timeout:   seconds(oc.TimeoutSecs),
			BatchSize: oc.BatchSize,
		})
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openaiemb.NewClient(openaiemb.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   seconds(cfg.Embedder.OpenAI.TimeoutSecs),
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "tfidf":
		emb = tfidf.NewEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	opts := generator.Options{
		Temperature: cfg.Generator.Temperature,
		TopP:        cfg.Generator.TopP,
		MaxTokens:   cfg.Generator.MaxTokens,
	}
	var gen generator.Generator
	switch cfg.Generator.Type {
	case "ollama", "":
		oc := cfg.Generator.Ollama
		if oc == nil {
			oc = &config.OllamaConfig{}
		}
		gen = ollamagen.NewGenerator(ollamagen.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: seconds(oc.TimeoutSecs),
			Options: opts,
		})
	case "openai":
		if cfg.Generator.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		g, err := openaigen.NewGenerator(openaigen.Config{
			BaseURL:   cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv: cfg.Generator.OpenAI.APIKeyEnv,
			Model:     cfg.Generator.OpenAI.Model,
			Timeout:   seconds(cfg.Generator.OpenAI.TimeoutSecs),
			Options:   opts,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	return service.NewQAService(service.Options{
		Chunker:      ch,
		Embedder:     emb,
		Store:        memory.NewStorage(),
		Generator:    gen,
		Summarizer:   sum,
		TopK:         cfg.Retriever.TopK,
		MaxSentences: cfg.Summarizer.MaxSentences,
		Extensions:   cfg.Transcripts.Extensions,
	}), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
