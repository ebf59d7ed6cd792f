// Package enrich prepends contextual blurbs to document chunks before
// indexing, so retrieval sees each chunk situated within its document.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clarkhq/clark/internal/llm"
	"github.com/clarkhq/clark/internal/parser"
	"golang.org/x/time/rate"
)

// Contextualizer produces a short explanation of a chunk within its document.
type Contextualizer interface {
	ContextualizeChunk(ctx context.Context, docContext, chunkContent string) (string, error)
}

// EnrichedChunk pairs a chunk's indexable content with its original text.
// Content equals Original when enrichment was skipped or fell back.
type EnrichedChunk struct {
	Content  string
	Original string
	Position int
}

// Config controls enrichment strategy and throughput.
type Config struct {
	// ContextThreshold caps both the document size eligible for enrichment
	// and the document-context window passed to each call.
	ContextThreshold int
	// CallInterval is the mandatory delay between contextualization calls.
	CallInterval time.Duration
}

// Enricher contextualizes chunks with rate-limit-aware throttling. External
// calls are throttled by the limiter and retried by the policy; any chunk
// whose enrichment ultimately fails is passed through raw, never dropped.
type Enricher struct {
	contextualizer Contextualizer
	retry          *llm.RetryPolicy
	limiter        *rate.Limiter

	// threshold is the maximum document size, in characters, that still
	// gets contextual enrichment. Larger documents are indexed raw.
	threshold int
}

// New creates an Enricher.
func New(contextualizer Contextualizer, retry *llm.RetryPolicy, cfg Config) *Enricher {
	return &Enricher{
		contextualizer: contextualizer,
		retry:          retry,
		limiter:        rate.NewLimiter(rate.Every(cfg.CallInterval), 1),
		threshold:      cfg.ContextThreshold,
	}
}

// Enrich contextualizes every chunk against the (truncated) full document.
// Exactly one output chunk is produced per input chunk.
func (e *Enricher) Enrich(ctx context.Context, fullText string, chunks []parser.ChunkResult) ([]EnrichedChunk, error) {
	out := make([]EnrichedChunk, 0, len(chunks))

	// Oversized documents skip enrichment entirely: contextualizing against
	// a truncated window of a much larger document misleads more than it
	// helps, and the call volume would blow through provider rate limits.
	if parser.CharCount(fullText) > e.threshold {
		slog.Info("document exceeds context threshold, skipping enrichment",
			"doc_len", parser.CharCount(fullText), "threshold", e.threshold)
		for _, chunk := range chunks {
			out = append(out, EnrichedChunk{
				Content:  chunk.Content,
				Original: chunk.Content,
				Position: chunk.Position,
			})
		}
		return out, nil
	}

	docContext := truncate(fullText, e.threshold)

	for i, chunk := range chunks {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("enrich throttle: %w", err)
		}

		blurb, err := e.contextualize(ctx, docContext, chunk.Content)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("chunk enrichment failed, indexing raw content",
				"position", chunk.Position, "error", err)
			out = append(out, EnrichedChunk{
				Content:  chunk.Content,
				Original: chunk.Content,
				Position: chunk.Position,
			})
			continue
		}

		out = append(out, EnrichedChunk{
			Content:  fmt.Sprintf("Context: %s\n\nContent: %s", blurb, chunk.Content),
			Original: chunk.Content,
			Position: chunk.Position,
		})
		slog.Debug("chunk enriched", "position", chunk.Position, "progress", fmt.Sprintf("%d/%d", i+1, len(chunks)))
	}

	return out, nil
}

// contextualize runs one contextualization call under the retry policy.
// Rate limiting retries with backoff; anything else fails immediately and
// the caller falls back to the raw chunk.
func (e *Enricher) contextualize(ctx context.Context, docContext, chunkContent string) (string, error) {
	var blurb string
	err := e.retry.Do(ctx, "contextualize", func(ctx context.Context) error {
		var callErr error
		blurb, callErr = e.contextualizer.ContextualizeChunk(ctx, docContext, chunkContent)
		return callErr
	})
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			// Billing or auth failures would fail every remaining chunk
			// the same way; surfacing them here lets ingestion log once.
			slog.Error("fatal API error during enrichment", "error", err)
		}
		return "", err
	}
	return blurb, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
