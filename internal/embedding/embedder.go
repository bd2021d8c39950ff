package embedding

import "context"

// Embedder converts free text into numeric vectors.
// Implementations may require a preparation phase over the corpus; remote
// embedders learn their dimension from the first response.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}
