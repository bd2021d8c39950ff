package domain

// Transcript represents a single call transcript loaded from disk.
type Transcript struct {
	ID      string
	Path    string
	Name    string
	Content string
}

// Chunk is a contiguous, bounded part of a transcript used as a retrieval unit.
type Chunk struct {
	ID       string
	Source   string
	Text     string
	Position int
}

// SearchResult represents a matching chunk with its cosine similarity.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits transcripts into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(transcript Transcript) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
