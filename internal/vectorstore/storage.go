package vectorstore

import "transcriptqa/internal/domain"

// Storage holds chunk vectors and answers top-K similarity queries.
// Chunks and vectors correspond by position.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Len() int
	Clear() error
}
