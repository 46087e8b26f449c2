package vectorstore

import (
	"context"

	"medrag/internal/domain"
)

// Storage holds corpus vectors addressed by row id (0..N-1, in insertion order) and answers
// exact nearest-neighbour queries by Euclidean distance.
type Storage interface {
	// Init discards any vectors and prepares an empty index of the given dimension.
	Init(ctx context.Context, dimension int) error
	// Add appends vectors; the i-th vector gets id Len()+i.
	Add(ctx context.Context, vectors [][]float64) error
	// Search returns up to topK neighbours ordered by ascending distance.
	Search(ctx context.Context, vector []float64, topK int) ([]domain.Neighbor, error)
	Len(ctx context.Context) (int, error)
	Dimension() int
	// Save persists the index tagged with the encoding model identifier.
	Save(ctx context.Context, model string) error
	// Load reads a persisted index and returns the model identifier it was tagged with,
	// or "" when the backend does not record one.
	Load(ctx context.Context) (string, error)
}
