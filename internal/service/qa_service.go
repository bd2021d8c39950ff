// Package service drives a question-answering session over call transcripts:
// load and index once, then answer questions one at a time.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"transcriptqa/internal/domain"
	"transcriptqa/internal/embedding"
	"transcriptqa/internal/generator"
	"transcriptqa/internal/loader"
	"transcriptqa/internal/logging"
	"transcriptqa/internal/vectorstore"
)

// Options wires the pipeline components into a QAService.
type Options struct {
	Chunker    domain.Chunker
	Embedder   embedding.Embedder
	Store      vectorstore.Storage
	Generator  generator.Generator
	Summarizer domain.Summarizer // optional

	TopK         int
	MaxSentences int
	Extensions   []string
}

// LoadReport describes what Load indexed.
type LoadReport struct {
	Transcripts int
	Chunks      int
	Sources     []string
	Embedder    string
	Generator   string
	Summary     string
	// ModelWarning is set when the generator model could not be confirmed.
	// Loading still succeeds; the error resurfaces on the first question.
	ModelWarning error
	Elapsed      time.Duration
}

// Answer is the outcome of a single question.
type Answer struct {
	ID       string
	Question string
	Text     string
	Sources  []domain.SearchResult
	Elapsed  time.Duration
}

// QAService is the orchestrator. It is not safe for concurrent questions;
// a second Ask while one is running fails with domain.ErrNotReady.
type QAService struct {
	chunker      domain.Chunker
	embedder     embedding.Embedder
	store        vectorstore.Storage
	generator    generator.Generator
	summarizer   domain.Summarizer
	topK         int
	maxSentences int
	extensions   []string
	state        lifecycle
}

// NewQAService creates a service in the LOADING state.
func NewQAService(opts Options) *QAService {
	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	return &QAService{
		chunker:      opts.Chunker,
		embedder:     opts.Embedder,
		store:        opts.Store,
		generator:    opts.Generator,
		summarizer:   opts.Summarizer,
		topK:         topK,
		maxSentences: opts.MaxSentences,
		extensions:   opts.Extensions,
		state:        lifecycle{state: StateLoading},
	}
}

// State returns the current lifecycle state.
func (s *QAService) State() State { return s.state.get() }

// TopK returns the number of chunks retrieved per question.
func (s *QAService) TopK() int { return s.topK }

// Load reads, chunks and embeds every transcript in dir and moves the
// service to READY. It fails with domain.ErrMissingTranscripts before any
// embedding work when there is nothing to index, and with
// domain.ErrEmbeddingFailure when the chunks cannot be embedded.
func (s *QAService) Load(ctx context.Context, dir string) (*LoadReport, error) {
	if st := s.state.get(); st != StateLoading {
		return nil, fmt.Errorf("load in state %s: %w", st, domain.ErrNotReady)
	}
	logger := logging.WithComponent("service")
	start := time.Now()

	transcripts, err := loader.Load(dir, s.extensions)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("transcripts", len(transcripts)).Str("dir", dir).Msg("transcripts loaded")

	var (
		chunks []domain.Chunk
		texts  []string
		corpus strings.Builder
	)
	report := &LoadReport{Transcripts: len(transcripts), Embedder: s.embedder.Name(), Generator: s.generator.Name()}
	for _, t := range transcripts {
		cs, err := s.chunker.Chunk(t)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", t.Name, err)
		}
		for _, ch := range cs {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
		report.Sources = append(report.Sources, t.Name)
		corpus.WriteString(t.Content)
		corpus.WriteString("\n")
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: transcripts in %s contain no text", domain.ErrMissingTranscripts, dir)
	}
	report.Chunks = len(chunks)
	logger.Info().Int("chunks", len(chunks)).Msg("transcripts chunked")

	if err := s.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("%w: prepare %s: %w", domain.ErrEmbeddingFailure, s.embedder.Name(), err)
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, embeddingError(err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailure, len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrEmbeddingFailure, i, len(v), dim)
		}
	}
	if err := s.store.Init(dim); err != nil {
		return nil, err
	}
	if err := s.store.Upsert(chunks, vectors); err != nil {
		return nil, err
	}
	logger.Info().Int("dimension", dim).Str("embedder", s.embedder.Name()).Msg("chunks embedded")

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(corpus.String(), s.maxSentences)
		if err != nil {
			logger.Warn().Err(err).Msg("summary failed")
		}
		report.Summary = summary
	}

	if checker, ok := s.generator.(generator.ModelChecker); ok {
		if err := checker.CheckModel(ctx); err != nil {
			report.ModelWarning = err
			logger.Warn().Err(err).Str("generator", s.generator.Name()).Msg("generator model check failed")
		}
	}

	report.Elapsed = time.Since(start)
	if !s.state.transition(StateLoading, StateReady) {
		return nil, fmt.Errorf("load finished in state %s: %w", s.state.get(), domain.ErrNotReady)
	}
	logger.Info().Dur("elapsed", report.Elapsed).Msg("ready for questions")
	return report, nil
}

// Ask answers a single question from the top-K most similar chunks. The
// service returns to READY whether or not generation succeeds, so the same
// question can be asked again once the model service is back.
func (s *QAService) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if !s.state.transition(StateReady, StateAnswering) {
		return nil, fmt.Errorf("ask in state %s: %w", s.state.get(), domain.ErrNotReady)
	}
	defer s.state.transition(StateAnswering, StateReady)

	id := uuid.NewString()
	logger := logging.WithQuestion("service", id)
	start := time.Now()

	vec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		logger.Error().Err(err).Msg("question embedding failed")
		return nil, embeddingError(err)
	}
	results, err := s.store.Search(vec, s.topK)
	if err != nil {
		logger.Error().Err(err).Msg("retrieval failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	for i, r := range results {
		logger.Debug().Int("rank", i+1).Str("chunk", r.Chunk.ID).Float64("score", r.Score).Msg("retrieved")
	}

	text, err := s.generator.Generate(ctx, generator.BuildPrompt(question, results))
	if err != nil {
		logger.Error().Err(err).Str("generator", s.generator.Name()).Msg("generation failed")
		return nil, err
	}
	answer := &Answer{ID: id, Question: question, Text: text, Sources: results, Elapsed: time.Since(start)}
	logger.Info().Dur("elapsed", answer.Elapsed).Int("sources", len(results)).Msg("answered")
	return answer, nil
}

// Exit moves the service to EXITING. Later questions fail with
// domain.ErrNotReady.
func (s *QAService) Exit() {
	s.state.exit()
	logger := logging.WithComponent("service")
	logger.Debug().Msg("exiting")
}

// Describe turns an error into text for the user, with a remediation hint
// for the kinds they can fix themselves.
func (s *QAService) Describe(err error) string {
	if err == nil {
		return ""
	}
	model := ""
	if m, ok := s.generator.(interface{ Model() string }); ok {
		model = m.Model()
	}
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, domain.ErrEmbeddingFailure) && errors.Is(err, domain.ErrServiceUnavailable):
		return "The embedding service is not responding. Start it with `ollama serve` and try again."
	case errors.Is(err, domain.ErrEmbeddingFailure) && errors.Is(err, domain.ErrModelNotFound):
		embModel := s.embedder.Name()
		if m, ok := s.embedder.(interface{ Model() string }); ok {
			embModel = m.Model()
		}
		return fmt.Sprintf("Embedding model %q is not installed. Run `ollama pull %s` and try again.", embModel, embModel)
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return fmt.Sprintf("Could not embed text: %v.", err)
	case errors.Is(err, domain.ErrModelNotFound):
		if model == "" {
			return fmt.Sprintf("Model not found: %v. Pull the configured model and ask again.", err)
		}
		return fmt.Sprintf("Model %q is not installed. Run `ollama pull %s` and ask again.", model, model)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "The language model service is not responding. Start it with `ollama serve` and ask again."
	case errors.Is(err, domain.ErrMissingTranscripts):
		return fmt.Sprintf("Nothing to answer from: %v.", err)
	case errors.Is(err, domain.ErrNotReady):
		return "Questions are not being accepted right now."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func embeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
}
