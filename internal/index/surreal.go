package index

import (
	"context"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/models"
)

// SurrealDense is the HNSW-backed dense index over the chunk table.
type SurrealDense struct {
	db *db.Client
}

// NewSurrealDense creates the dense index handle.
func NewSurrealDense(client *db.Client) *SurrealDense {
	return &SurrealDense{db: client}
}

func (s *SurrealDense) Add(ctx context.Context, chunks []models.ChunkInput) error {
	return s.db.InsertChunks(ctx, chunks)
}

func (s *SurrealDense) Search(ctx context.Context, embedding []float32, spaceID *int64, k int) ([]models.Chunk, error) {
	return s.db.DenseSearch(ctx, embedding, spaceID, k)
}

// SurrealSparse is the BM25 full-text index over the same chunk table.
type SurrealSparse struct {
	db *db.Client
}

// NewSurrealSparse creates the sparse index handle.
func NewSurrealSparse(client *db.Client) *SurrealSparse {
	return &SurrealSparse{db: client}
}

// Add is a no-op: the full-text index is defined over the rows the dense
// index insert writes, so the keyword side updates on that same insert.
// A sparse backend with its own storage would persist chunks here.
func (s *SurrealSparse) Add(_ context.Context, _ []models.ChunkInput) error {
	return nil
}

func (s *SurrealSparse) Search(ctx context.Context, query string, spaceID *int64, k int) ([]models.Chunk, error) {
	return s.db.SparseSearch(ctx, query, spaceID, k)
}
