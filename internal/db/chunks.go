package db

import (
	"context"
	"fmt"

	"github.com/clarkhq/clark/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// InsertChunks appends enriched chunks to the index table. Insertion is
// append-only; existing chunks are never re-embedded or rewritten.
func (c *Client) InsertChunks(ctx context.Context, chunks []models.ChunkInput) error {
	for _, chunk := range chunks {
		_, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
			CREATE chunk CONTENT {
				space_id: $space_id,
				document_id: $document_id,
				filename: $filename,
				position: $position,
				content: $content,
				original_content: $original_content,
				embedding: $embedding
			}
		`, map[string]any{
			"space_id":         chunk.SpaceID,
			"document_id":      chunk.DocumentID,
			"filename":         chunk.Filename,
			"position":         chunk.Position,
			"content":          chunk.Content,
			"original_content": chunk.OriginalContent,
			"embedding":        chunk.Embedding,
		})
		if err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", chunk.Position, chunk.Filename, wrapQueryError(err))
		}
	}
	return nil
}

// DenseSearch runs an HNSW nearest-neighbour search over chunk embeddings.
// A nil spaceID searches across all spaces (administrative queries only);
// otherwise results are filtered to the space by exact metadata match.
func (c *Client) DenseSearch(ctx context.Context, embedding []float32, spaceID *int64, k int) ([]models.Chunk, error) {
	spaceClause := ""
	vars := map[string]any{"emb": embedding}
	if spaceID != nil {
		spaceClause = "AND space_id = $space"
		vars["space"] = *spaceID
	}

	// ef=40 for better recall, matching the HNSW index definition.
	sql := fmt.Sprintf(`
		SELECT id, space_id, document_id, filename, position, content, original_content, created_at
		FROM chunk
		WHERE embedding <|%d,40|> $emb %s
	`, k, spaceClause)

	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// SparseSearch runs a BM25 full-text search over chunk content, ranked by
// search score. Space scoping behaves as in DenseSearch.
func (c *Client) SparseSearch(ctx context.Context, query string, spaceID *int64, k int) ([]models.Chunk, error) {
	spaceClause := ""
	vars := map[string]any{"q": query, "k": k}
	if spaceID != nil {
		spaceClause = "AND space_id = $space"
		vars["space"] = *spaceID
	}

	sql := fmt.Sprintf(`
		SELECT id, space_id, document_id, filename, position, content, original_content, created_at
		FROM chunk
		WHERE content @0@ $q %s
		ORDER BY search::score(0) DESC
		LIMIT $k
	`, spaceClause)

	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// CountChunks returns the number of indexed chunks for a space.
func (c *Client) CountChunks(ctx context.Context, spaceID int64) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM chunk WHERE space_id = $space GROUP ALL
	`, map[string]any{"space": spaceID})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
