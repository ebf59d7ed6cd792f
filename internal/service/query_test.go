package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clarkhq/clark/internal/index"
	"github.com/clarkhq/clark/internal/llm"
	"github.com/clarkhq/clark/internal/metrics"
	"github.com/clarkhq/clark/internal/models"
	"github.com/clarkhq/clark/internal/rerank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	bySpace map[int64]index.SearchResult
	calls   []*int64
}

func (f *fakeRetriever) Search(_ context.Context, _ string, spaceID *int64, _ int) index.SearchResult {
	f.calls = append(f.calls, spaceID)
	if spaceID == nil {
		return index.SearchResult{}
	}
	return f.bySpace[*spaceID]
}

type fakeGenerator struct {
	answer       string
	generateErr  error
	rewritten    string
	rewriteErr   error
	generateRuns int
	lastContext  string
}

func (f *fakeGenerator) RewriteQuery(_ context.Context, _ []llm.Turn, question string) (string, error) {
	if f.rewriteErr != nil {
		return "", f.rewriteErr
	}
	if f.rewritten != "" {
		return f.rewritten, nil
	}
	return question, nil
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, contextText string, _ []llm.Turn, _ string) (string, error) {
	f.generateRuns++
	f.lastContext = contextText
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.answer, nil
}

type fakeSpaces struct {
	ids []int64
}

func (f *fakeSpaces) ListSpaceIDs(_ context.Context) ([]int64, error) { return f.ids, nil }

type passthroughCompressor struct{}

func (passthroughCompressor) Compress(_ context.Context, _ string, dense, sparse []models.Chunk) rerank.Compressed {
	fused := rerank.Fuse(dense, sparse)
	return rerank.Compressed{Chunks: fused, Reranked: true}
}

type failingCompressor struct{}

func (failingCompressor) Compress(_ context.Context, _ string, dense, sparse []models.Chunk) rerank.Compressed {
	// Mirrors the Compressor's degraded mode after a scorer outage.
	fused := rerank.Fuse(dense, sparse)
	if len(fused) > 5 {
		fused = fused[:5]
	}
	return rerank.Compressed{Chunks: fused, Reranked: false}
}

func newQueryService(r Retriever, c ContextCompressor, g Generator, spaces SpaceLister) *QueryService {
	return NewQueryService(r, c, g, spaces, metrics.NewCollector(), 15)
}

func TestAnswer_EmptySpaceReturnsNothingFound(t *testing.T) {
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{}}
	generator := &fakeGenerator{answer: "should not be called"}
	svc := newQueryService(retriever, passthroughCompressor{}, generator, &fakeSpaces{})

	space := int64(5)
	result, err := svc.Answer(context.Background(), QueryRequest{Query: "anything", SpaceID: &space})

	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, result.Answer)
	assert.Empty(t, result.SourceDocument)
	assert.Zero(t, generator.generateRuns, "generation must not run without context")
}

func TestAnswer_ReturnsTopSourceAndPreview(t *testing.T) {
	space := int64(1)
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{
		1: {
			Dense: []models.Chunk{
				{Content: "enriched top", OriginalContent: "original top", Filename: "thermo.pdf"},
				{Content: "enriched second", OriginalContent: "original second", Filename: "thermo.pdf"},
			},
			Sparse: []models.Chunk{
				{Content: "enriched top", OriginalContent: "original top", Filename: "thermo.pdf"},
			},
		},
	}}
	generator := &fakeGenerator{answer: "heat flows from hot to cold"}
	svc := newQueryService(retriever, passthroughCompressor{}, generator, &fakeSpaces{})

	result, err := svc.Answer(context.Background(), QueryRequest{Query: "what is entropy", SpaceID: &space})

	require.NoError(t, err)
	assert.Equal(t, "heat flows from hot to cold", result.Answer)
	assert.Equal(t, "thermo.pdf", result.SourceDocument)
	assert.Equal(t, "enriched top", result.TopChunkPreview)
	assert.True(t, result.Reranked)
	assert.False(t, result.GenerationFailed)

	// Context prefers the original text and carries attribution.
	assert.Contains(t, generator.lastContext, "<source doc='thermo.pdf'>")
	assert.Contains(t, generator.lastContext, "original top")
	assert.NotContains(t, generator.lastContext, "enriched top")
}

func TestAnswer_RerankOutageStillAnswers(t *testing.T) {
	space := int64(1)
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{
		1: {Dense: []models.Chunk{{Content: "c1", Filename: "doc.pdf"}}},
	}}
	generator := &fakeGenerator{answer: "still answered"}
	svc := newQueryService(retriever, failingCompressor{}, generator, &fakeSpaces{})

	result, err := svc.Answer(context.Background(), QueryRequest{Query: "q", SpaceID: &space})

	require.NoError(t, err)
	assert.Equal(t, "still answered", result.Answer)
	assert.False(t, result.Reranked, "fusion-order fallback is marked unreranked")
}

func TestAnswer_GenerationFailureIsMarkedNotPropagated(t *testing.T) {
	space := int64(1)
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{
		1: {Dense: []models.Chunk{{Content: "c1", Filename: "doc.pdf"}}},
	}}
	generator := &fakeGenerator{generateErr: errors.New("model down")}
	svc := newQueryService(retriever, passthroughCompressor{}, generator, &fakeSpaces{})

	result, err := svc.Answer(context.Background(), QueryRequest{Query: "q", SpaceID: &space})

	require.NoError(t, err, "generation failure must not surface as an error")
	assert.True(t, result.GenerationFailed)
	assert.Equal(t, GenerationFailedAnswer, result.Answer)
	assert.Equal(t, "doc.pdf", result.SourceDocument)
}

func TestAnswer_NoSpaceFansOutAcrossAll(t *testing.T) {
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{
		1: {Dense: []models.Chunk{{Content: "from space one", Filename: "a.pdf"}}},
		2: {Sparse: []models.Chunk{{Content: "from space two", Filename: "b.pdf"}}},
	}}
	generator := &fakeGenerator{answer: "combined"}
	svc := newQueryService(retriever, passthroughCompressor{}, generator, &fakeSpaces{ids: []int64{1, 2}})

	result, err := svc.Answer(context.Background(), QueryRequest{Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, "combined", result.Answer)
	require.Len(t, retriever.calls, 2)
	assert.Contains(t, generator.lastContext, "from space one")
	assert.Contains(t, generator.lastContext, "from space two")
}

func TestAnswer_RewriteOnlyWithHistory(t *testing.T) {
	space := int64(1)
	retriever := &fakeRetriever{bySpace: map[int64]index.SearchResult{
		1: {Dense: []models.Chunk{{Content: "c", Filename: "d.pdf"}}},
	}}
	generator := &fakeGenerator{answer: "a", rewriteErr: errors.New("rewrite down")}
	svc := newQueryService(retriever, passthroughCompressor{}, generator, &fakeSpaces{})

	// Rewrite failure with history falls back to the raw query.
	result, err := svc.Answer(context.Background(), QueryRequest{
		Query:   "and what about that?",
		SpaceID: &space,
		History: []llm.Turn{{Role: "user", Content: "earlier question"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", result.Answer)
}
