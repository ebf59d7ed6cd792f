package rerank

import (
	"context"
	"log/slog"
	"sort"

	"github.com/clarkhq/clark/internal/models"
)

// Compressed is the outcome of fusion and reranking. Reranked is false when
// the scorer was unavailable and the chunks are in fusion order.
type Compressed struct {
	Chunks   []models.Chunk
	Reranked bool
}

// Compressor merges retrieval candidate lists, deduplicates them, and
// truncates to the top-N most relevant chunks.
type Compressor struct {
	scorer Scorer
	topN   int
}

// NewCompressor creates a Compressor returning up to topN chunks.
func NewCompressor(scorer Scorer, topN int) *Compressor {
	if topN <= 0 {
		topN = 5
	}
	return &Compressor{scorer: scorer, topN: topN}
}

// Fuse concatenates candidate lists and deduplicates by exact enriched
// content. The first occurrence wins, so earlier lists take precedence for
// metadata when the same chunk appears in both.
func Fuse(lists ...[]models.Chunk) []models.Chunk {
	seen := make(map[string]struct{})
	var fused []models.Chunk
	for _, list := range lists {
		for _, chunk := range list {
			if _, ok := seen[chunk.Content]; ok {
				continue
			}
			seen[chunk.Content] = struct{}{}
			fused = append(fused, chunk)
		}
	}
	return fused
}

// Compress fuses the candidate lists, scores them against the query, and
// returns the top-N by descending relevance. A scorer failure degrades to
// the first N fused candidates rather than failing the query.
func (c *Compressor) Compress(ctx context.Context, query string, dense, sparse []models.Chunk) Compressed {
	fused := Fuse(dense, sparse)
	if len(fused) == 0 {
		return Compressed{}
	}

	passages := make([]string, len(fused))
	for i, chunk := range fused {
		passages[i] = chunk.Content
	}

	scores, err := c.scorer.Score(ctx, query, passages)
	if err != nil || len(scores) != len(fused) {
		if err != nil {
			slog.Warn("rerank failed, returning fusion-order candidates", "error", err)
		} else {
			slog.Warn("rerank returned wrong score count, returning fusion-order candidates",
				"got", len(scores), "want", len(fused))
		}
		return Compressed{Chunks: truncateChunks(fused, c.topN), Reranked: false}
	}

	type scored struct {
		chunk models.Chunk
		score float64
	}
	ranked := make([]scored, len(fused))
	for i, chunk := range fused {
		ranked[i] = scored{chunk: chunk, score: scores[i]}
	}
	// Stable keeps fusion order for ties, so repeated queries over an
	// unchanged index return a stable ordering.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.Chunk, 0, min(c.topN, len(ranked)))
	for i := 0; i < len(ranked) && i < c.topN; i++ {
		out = append(out, ranked[i].chunk)
	}
	return Compressed{Chunks: out, Reranked: true}
}

func truncateChunks(chunks []models.Chunk, n int) []models.Chunk {
	if len(chunks) <= n {
		return chunks
	}
	return chunks[:n]
}
