package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clarkhq/clark/internal/index"
	"github.com/clarkhq/clark/internal/llm"
	"github.com/clarkhq/clark/internal/metrics"
	"github.com/clarkhq/clark/internal/models"
	"github.com/clarkhq/clark/internal/rerank"
)

// Retriever runs a hybrid search. *index.HybridIndex satisfies it.
type Retriever interface {
	Search(ctx context.Context, query string, spaceID *int64, k int) index.SearchResult
}

// ContextCompressor fuses and reranks candidates. *rerank.Compressor
// satisfies it.
type ContextCompressor interface {
	Compress(ctx context.Context, query string, dense, sparse []models.Chunk) rerank.Compressed
}

// Generator covers the model calls the orchestrator makes.
type Generator interface {
	RewriteQuery(ctx context.Context, history []llm.Turn, question string) (string, error)
	GenerateAnswer(ctx context.Context, contextText string, history []llm.Turn, question string) (string, error)
}

// SpaceLister enumerates spaces with indexed content, for cross-space fan-out.
type SpaceLister interface {
	ListSpaceIDs(ctx context.Context) ([]int64, error)
}

// Answer texts for degraded outcomes. The user always gets a response;
// failures show up as these rather than errors.
const (
	NoContextAnswer        = "I couldn't find relevant information in this space."
	GenerationFailedAnswer = "Answer generation failed. Your question was saved; please try again."
)

// QueryRequest is one user turn to answer.
type QueryRequest struct {
	Query   string
	SpaceID *int64
	History []llm.Turn
}

// Result is the outcome of one answered turn.
type Result struct {
	Answer          string `json:"answer"`
	SourceDocument  string `json:"source_document,omitempty"`
	TopChunkPreview string `json:"top_chunk_preview,omitempty"`

	// Reranked is false when the cross-encoder was unavailable and chunks
	// are in fusion order.
	Reranked bool `json:"reranked"`
	// GenerationFailed marks an answer-model failure. The user turn is
	// already logged by then, so history is preserved.
	GenerationFailed bool `json:"generation_failed,omitempty"`
}

// QueryService orchestrates one question: rewrite, retrieve, fuse, rerank,
// compose, generate.
type QueryService struct {
	retriever  Retriever
	compressor ContextCompressor
	generator  Generator
	spaces     SpaceLister
	collector  *metrics.Collector
	topK       int
}

// NewQueryService creates the query orchestrator. topK bounds each
// sub-index's candidate list.
func NewQueryService(retriever Retriever, compressor ContextCompressor, generator Generator, spaces SpaceLister, collector *metrics.Collector, topK int) *QueryService {
	if topK <= 0 {
		topK = 15
	}
	return &QueryService{
		retriever:  retriever,
		compressor: compressor,
		generator:  generator,
		spaces:     spaces,
		collector:  collector,
		topK:       topK,
	}
}

// Answer produces the response for one user turn.
func (s *QueryService) Answer(ctx context.Context, req QueryRequest) (Result, error) {
	searchQuery := s.rewrite(ctx, req)

	start := time.Now()
	dense, sparse := s.retrieve(ctx, searchQuery, req.SpaceID)
	s.collector.RecordTiming(metrics.OpIndexSearch, time.Since(start))

	start = time.Now()
	compressed := s.compressor.Compress(ctx, searchQuery, dense, sparse)
	s.collector.RecordTiming(metrics.OpRerank, time.Since(start))
	if !compressed.Reranked && len(compressed.Chunks) > 0 {
		s.collector.RecordFallback(metrics.OpRerank)
	}

	if len(compressed.Chunks) == 0 {
		slog.Info("no relevant context found", "query_len", len(req.Query), "space_id", req.SpaceID)
		return Result{Answer: NoContextAnswer}, nil
	}

	top := compressed.Chunks[0]
	contextText := formatSources(compressed.Chunks)

	start = time.Now()
	answer, err := s.generator.GenerateAnswer(ctx, contextText, req.History, req.Query)
	s.collector.RecordTiming(metrics.OpGenerate, time.Since(start))
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		return Result{
			Answer:           GenerationFailedAnswer,
			SourceDocument:   top.Filename,
			Reranked:         compressed.Reranked,
			GenerationFailed: true,
		}, nil
	}

	return Result{
		Answer:          answer,
		SourceDocument:  top.Filename,
		TopChunkPreview: preview(top.Content, 200),
		Reranked:        compressed.Reranked,
	}, nil
}

// StreamGenerator is implemented by generators that can deliver the answer
// incrementally.
type StreamGenerator interface {
	GenerateAnswerStream(ctx context.Context, contextText string, history []llm.Turn, question string, onChunk func(string)) (string, error)
}

// AnswerStream behaves like Answer but forwards answer fragments through
// onChunk as they arrive. Falls back to non-streaming generation when the
// underlying generator cannot stream.
func (s *QueryService) AnswerStream(ctx context.Context, req QueryRequest, onChunk func(string)) (Result, error) {
	streamer, ok := s.generator.(StreamGenerator)
	if !ok {
		result, err := s.Answer(ctx, req)
		if err == nil && result.Answer != "" {
			onChunk(result.Answer)
		}
		return result, err
	}

	searchQuery := s.rewrite(ctx, req)

	start := time.Now()
	dense, sparse := s.retrieve(ctx, searchQuery, req.SpaceID)
	s.collector.RecordTiming(metrics.OpIndexSearch, time.Since(start))

	compressed := s.compressor.Compress(ctx, searchQuery, dense, sparse)
	if len(compressed.Chunks) == 0 {
		onChunk(NoContextAnswer)
		return Result{Answer: NoContextAnswer}, nil
	}

	top := compressed.Chunks[0]
	start = time.Now()
	answer, err := streamer.GenerateAnswerStream(ctx, formatSources(compressed.Chunks), req.History, req.Query, onChunk)
	s.collector.RecordTiming(metrics.OpGenerate, time.Since(start))
	if err != nil {
		slog.Error("streaming answer generation failed", "error", err)
		return Result{
			Answer:           GenerationFailedAnswer,
			SourceDocument:   top.Filename,
			Reranked:         compressed.Reranked,
			GenerationFailed: true,
		}, nil
	}

	return Result{
		Answer:          answer,
		SourceDocument:  top.Filename,
		TopChunkPreview: preview(top.Content, 200),
		Reranked:        compressed.Reranked,
	}, nil
}

// rewrite turns a follow-up into a standalone search query when history
// exists. A rewrite failure falls back to the raw query; retrieval with
// the unrewritten question beats no retrieval at all.
func (s *QueryService) rewrite(ctx context.Context, req QueryRequest) string {
	if len(req.History) == 0 {
		return req.Query
	}
	rewritten, err := s.generator.RewriteQuery(ctx, req.History, req.Query)
	if err != nil {
		slog.Warn("query rewrite failed, using raw query", "error", err)
		return req.Query
	}
	return rewritten
}

// retrieve searches the requesting space, or fans out across every space
// with indexed content when no space is given.
func (s *QueryService) retrieve(ctx context.Context, query string, spaceID *int64) (dense, sparse []models.Chunk) {
	if spaceID != nil {
		result := s.retriever.Search(ctx, query, spaceID, s.topK)
		return result.Dense, result.Sparse
	}

	ids, err := s.spaces.ListSpaceIDs(ctx)
	if err != nil {
		slog.Warn("space enumeration failed, searching unscoped", "error", err)
		result := s.retriever.Search(ctx, query, nil, s.topK)
		return result.Dense, result.Sparse
	}

	for _, id := range ids {
		result := s.retriever.Search(ctx, query, &id, s.topK)
		dense = append(dense, result.Dense...)
		sparse = append(sparse, result.Sparse...)
	}
	return dense, sparse
}

// formatSources renders chunks as delimited source blocks with document
// attribution, preferring original over enriched text.
func formatSources(chunks []models.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, fmt.Sprintf("<source doc='%s'>\n%s\n</source>", chunk.Filename, chunk.DisplayContent()))
	}
	return strings.Join(blocks, "\n\n")
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
