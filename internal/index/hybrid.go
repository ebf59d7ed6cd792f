package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/clarkhq/clark/internal/enrich"
	"github.com/clarkhq/clark/internal/models"
)

// SearchResult carries the two candidate lists of a hybrid search. Either
// list may be empty when its backend failed; the failure is logged, not
// propagated.
type SearchResult struct {
	Dense  []models.Chunk
	Sparse []models.Chunk
}

// HybridIndex maintains the dense and sparse indexes over enriched chunks.
// Mutation is serialized per space; searches run without locking.
type HybridIndex struct {
	dense    DenseIndex
	sparse   SparseIndex
	embedder Embedder

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewHybrid creates a HybridIndex over the given backends.
func NewHybrid(dense DenseIndex, sparse SparseIndex, embedder Embedder) *HybridIndex {
	return &HybridIndex{
		dense:    dense,
		sparse:   sparse,
		embedder: embedder,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (h *HybridIndex) spaceLock(spaceID int64) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.locks[spaceID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[spaceID] = lock
	}
	return lock
}

// Add embeds enriched chunks and appends them to both indexes. Embedding
// happens before the space lock is taken so external calls never block
// concurrent ingestion into other spaces or searches into this one.
func (h *HybridIndex) Add(ctx context.Context, spaceID, documentID int64, filename string, chunks []enrich.EnrichedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := h.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	inputs := make([]models.ChunkInput, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = models.ChunkInput{
			SpaceID:         spaceID,
			DocumentID:      documentID,
			Filename:        filename,
			Position:        chunk.Position,
			Content:         chunk.Content,
			OriginalContent: chunk.Original,
			Embedding:       vectors[i],
		}
	}

	lock := h.spaceLock(spaceID)
	lock.Lock()
	defer lock.Unlock()

	if err := h.dense.Add(ctx, inputs); err != nil {
		return fmt.Errorf("dense index add: %w", err)
	}
	if err := h.sparse.Add(ctx, inputs); err != nil {
		return fmt.Errorf("sparse index add: %w", err)
	}

	slog.Info("chunks indexed", "space_id", spaceID, "document_id", documentID, "count", len(inputs))
	return nil
}

// Search queries both indexes for up to k candidates each. A failing
// backend contributes an empty list; the other side's results still flow
// to fusion. Only a failure of both sides yields a fully empty result, and
// even that is not an error.
func (h *HybridIndex) Search(ctx context.Context, query string, spaceID *int64, k int) SearchResult {
	var result SearchResult

	embedding, err := h.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, dense retrieval skipped", "error", err)
	} else {
		dense, err := h.dense.Search(ctx, embedding, spaceID, k)
		if err != nil {
			slog.Warn("dense search failed", "error", err)
		} else {
			result.Dense = dense
		}
	}

	sparse, err := h.sparse.Search(ctx, query, spaceID, k)
	if err != nil {
		slog.Warn("sparse search failed", "error", err)
	} else {
		result.Sparse = sparse
	}

	return result
}
