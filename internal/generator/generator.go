// Package generator turns retrieved transcript excerpts and a question into
// an answer from a local language model.
package generator

import (
	"context"
	"fmt"
	"strings"

	"transcriptqa/internal/domain"
)

// Generator sends a single prompt to a language model and returns its text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelChecker is implemented by generators that can tell whether their
// model is installed before the first question.
type ModelChecker interface {
	CheckModel(ctx context.Context) error
}

// Options are the sampling settings shared by all backends.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultOptions favour short, literal answers.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, TopP: 0.9, MaxTokens: 200}
}

const instructions = "You are a helpful AI assistant analyzing sales call transcripts. " +
	"Based on the provided transcript excerpts, answer the question concisely and accurately. " +
	"Focus only on the information present in the transcripts. Do not include quotes or extra commentary."

// BuildPrompt lays out the instructions, the question and the numbered excerpts.
func BuildPrompt(question string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nRelevant transcript excerpts:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[Excerpt %d: %s]\n%s\n", i+1, r.Chunk.Source, r.Chunk.Text)
	}
	b.WriteString("\nPlease provide a concise answer based only on the transcript information:")
	return b.String()
}

// CleanAnswer trims the model output and strips one pair of wrapping quotes.
func CleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
