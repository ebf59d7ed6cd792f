// Package index maintains the dense and sparse retrieval indexes over
// enriched chunks and fans queries out across both.
package index

import (
	"context"

	"github.com/clarkhq/clark/internal/models"
)

// DenseIndex is an embedding-similarity index. Implementations must scope
// results to the given space when spaceID is non-nil; a nil spaceID searches
// all spaces and is reserved for administrative queries.
type DenseIndex interface {
	Add(ctx context.Context, chunks []models.ChunkInput) error
	Search(ctx context.Context, embedding []float32, spaceID *int64, k int) ([]models.Chunk, error)
}

// SparseIndex is a ranked keyword index with the same scoping contract.
type SparseIndex interface {
	Add(ctx context.Context, chunks []models.ChunkInput) error
	Search(ctx context.Context, query string, spaceID *int64, k int) ([]models.Chunk, error)
}

// Embedder turns text into a vector for dense indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
