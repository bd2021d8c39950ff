package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/chunker"
	"transcriptqa/internal/domain"
	"transcriptqa/internal/embedding/tfidf"
	"transcriptqa/internal/summarizer"
	"transcriptqa/internal/vectorstore/memory"
)

// fakeGenerator echoes the first excerpt of the prompt, or fails with err.
type fakeGenerator struct {
	err     error
	prompts []string
}

func (g *fakeGenerator) Name() string  { return "fake/llama3.2:3b" }
func (g *fakeGenerator) Model() string { return "llama3.2:3b" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	_, after, ok := strings.Cut(prompt, "[Excerpt 1: ")
	if !ok {
		return "", errors.New("no excerpts")
	}
	_, text, _ := strings.Cut(after, "\n")
	line, _, _ := strings.Cut(text, "\n")
	return "From the call: " + line, nil
}

// countingEmbedder wraps another embedder and counts calls.
type countingEmbedder struct {
	*tfidf.Embedder
	prepares, embeds int
	failEmbed        error
}

func (e *countingEmbedder) Prepare(corpus []string) error {
	e.prepares++
	return e.Embedder.Prepare(corpus)
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	e.embeds++
	if e.failEmbed != nil {
		return nil, e.failEmbed
	}
	return e.Embedder.Embed(ctx, texts)
}

func writeTranscripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newService(emb *countingEmbedder, gen *fakeGenerator, topK int) *QAService {
	return NewQAService(Options{
		Chunker:      chunker.NewTranscriptChunker(120, chunker.TimestampBoundary()),
		Embedder:     emb,
		Store:        memory.NewStorage(),
		Generator:    gen,
		Summarizer:   summarizer.NewFrequencySummarizer(),
		TopK:         topK,
		MaxSentences: 2,
	})
}

var calls = map[string]string{
	"lawn_care.txt": "Customer asked about pricing at [00:01:23]. Agent: Our standard rate is $45 per visit.\n" +
		"[00:02:10] Customer: Do you also trim hedges along the driveway?\n" +
		"[00:03:05] Agent: Yes, hedge trimming is included in the premium plan.",
	"pool.txt": "[00:00:05] Agent: Thanks for calling Blue Pools, how can I help?\n" +
		"[00:00:40] Customer: The pool pump makes a grinding noise every morning.\n" +
		"[00:01:30] Agent: A technician will inspect the pump on Thursday.",
}

func TestLoadAndAsk_PriceQuestion(t *testing.T) {
	emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
	gen := &fakeGenerator{}
	svc := newService(emb, gen, 3)
	assert.Equal(t, StateLoading, svc.State())

	report, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.NoError(t, err)
	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, 2, report.Transcripts)
	assert.Equal(t, []string{"lawn_care.txt", "pool.txt"}, report.Sources)
	assert.GreaterOrEqual(t, report.Chunks, 4)
	assert.Equal(t, "tfidf", report.Embedder)
	assert.NotEmpty(t, report.Summary)
	assert.NoError(t, report.ModelWarning)
	assert.Equal(t, 1, emb.embeds)

	answer, err := svc.Ask(context.Background(), "What is the price?")
	require.NoError(t, err)
	assert.Equal(t, StateReady, svc.State())
	assert.NotEmpty(t, answer.ID)
	require.Len(t, answer.Sources, 3)
	assert.Contains(t, answer.Sources[0].Chunk.Text, "$45 per visit")
	assert.Greater(t, answer.Sources[0].Score, answer.Sources[1].Score)
	for i := 1; i < len(answer.Sources); i++ {
		assert.GreaterOrEqual(t, answer.Sources[i-1].Score, answer.Sources[i].Score)
	}
	assert.Contains(t, answer.Text, "$45 per visit")

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Question: What is the price?")
	assert.Contains(t, gen.prompts[0], "[Excerpt 1: lawn_care.txt]")
}

func TestLoad_EmptyDirectoryStopsBeforeEmbedding(t *testing.T) {
	emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
	svc := newService(emb, &fakeGenerator{}, 3)

	_, err := svc.Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrMissingTranscripts)
	assert.Zero(t, emb.prepares)
	assert.Zero(t, emb.embeds)
	assert.Equal(t, StateLoading, svc.State())

	_, err = svc.Ask(context.Background(), "What is the price?")
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestLoad_BlankTranscripts(t *testing.T) {
	emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
	svc := newService(emb, &fakeGenerator{}, 3)

	_, err := svc.Load(context.Background(), writeTranscripts(t, map[string]string{"empty.txt": " \n\t\n"}))
	assert.ErrorIs(t, err, domain.ErrMissingTranscripts)
	assert.Zero(t, emb.embeds)
}

func TestLoad_EmbeddingFailureIsFatal(t *testing.T) {
	emb := &countingEmbedder{Embedder: tfidf.NewEmbedder(), failEmbed: fmt.Errorf("dial: %w", domain.ErrServiceUnavailable)}
	svc := newService(emb, &fakeGenerator{}, 3)

	_, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, StateLoading, svc.State())
	assert.Contains(t, svc.Describe(err), "embedding service is not responding")
}

func TestAsk_ServiceDownThenRestored(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("post: %w", domain.ErrServiceUnavailable)}
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, gen, 3)
	_, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "What is the price?")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, StateReady, svc.State())
	assert.Contains(t, svc.Describe(err), "ollama serve")

	gen.err = nil
	answer, err := svc.Ask(context.Background(), "What is the price?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Text)
	assert.Len(t, gen.prompts, 2)
}

func TestAsk_ModelNotFound(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("generate: %w", domain.ErrModelNotFound)}
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, gen, 3)
	_, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "Who trims hedges?")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
	assert.Equal(t, StateReady, svc.State())
	assert.Contains(t, svc.Describe(err), "ollama pull llama3.2:3b")
}

func TestAsk_TopKBeyondCorpus(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, gen, 50)
	report, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), "When does the technician inspect the pump?")
	require.NoError(t, err)
	assert.Len(t, answer.Sources, report.Chunks)
	assert.Contains(t, answer.Sources[0].Chunk.Text, "pump")
}

func TestAsk_EmptyQuestionAndExit(t *testing.T) {
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, &fakeGenerator{}, 3)
	_, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Equal(t, StateReady, svc.State())

	svc.Exit()
	assert.Equal(t, StateExiting, svc.State())
	_, err = svc.Ask(context.Background(), "What is the price?")
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = svc.Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "LOADING", StateLoading.String())
	assert.Equal(t, "READY", StateReady.String())
	assert.Equal(t, "ANSWERING", StateAnswering.String())
	assert.Equal(t, "EXITING", StateExiting.String())
	assert.Equal(t, "UNKNOWN(9)", State(9).String())
}

func TestDescribe(t *testing.T) {
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, &fakeGenerator{}, 3)
	assert.Empty(t, svc.Describe(nil))
	assert.Equal(t, "Please enter a question.", svc.Describe(domain.ErrEmptyQuestion))
	assert.Contains(t, svc.Describe(fmt.Errorf("x: %w", domain.ErrMissingTranscripts)), "Nothing to answer from")
	assert.Equal(t, "Error: boom", svc.Describe(errors.New("boom")))
}

// namedEmbedder reports a bare model name like the Ollama embedder does.
type namedEmbedder struct {
	*countingEmbedder
}

func (e namedEmbedder) Name() string  { return "ollama/all-minilm" }
func (e namedEmbedder) Model() string { return "all-minilm" }

func TestDescribe_EmbeddingModelMissing(t *testing.T) {
	emb := namedEmbedder{&countingEmbedder{Embedder: tfidf.NewEmbedder(), failEmbed: fmt.Errorf("embed: %w", domain.ErrModelNotFound)}}
	svc := NewQAService(Options{
		Chunker:   chunker.NewTranscriptChunker(120, chunker.TimestampBoundary()),
		Embedder:  emb,
		Store:     memory.NewStorage(),
		Generator: &fakeGenerator{},
	})

	_, err := svc.Load(context.Background(), writeTranscripts(t, calls))
	require.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	msg := svc.Describe(err)
	assert.Contains(t, msg, "`ollama pull all-minilm`")
	assert.NotContains(t, msg, "ollama/all-minilm")
}

func TestExitFromLoadingState(t *testing.T) {
	svc := newService(&countingEmbedder{Embedder: tfidf.NewEmbedder()}, &fakeGenerator{}, 3)
	svc.Exit()
	assert.Equal(t, StateExiting, svc.State())
}
