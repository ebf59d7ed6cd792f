// Package rerank fuses dense and sparse retrieval candidates into one
// deduplicated list and reorders it with a cross-encoder relevance model.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Scorer scores (query, passage) relevance. Higher is more relevant; the
// returned slice is index-aligned with passages.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// DefaultRerankModel is a compact cross-encoder suitable for CPU serving.
const DefaultRerankModel = "BAAI/bge-reranker-base"

// HTTPScorer calls a text-embeddings-inference style /rerank endpoint.
type HTTPScorer struct {
	baseURL string
	model   string
	client  *http.Client
}

// Compile-time check that HTTPScorer implements Scorer.
var _ Scorer = (*HTTPScorer)(nil)

// NewHTTPScorer creates a cross-encoder client. If model is empty, uses
// DefaultRerankModel.
func NewHTTPScorer(baseURL, model string) *HTTPScorer {
	if model == "" {
		model = DefaultRerankModel
	}
	return &HTTPScorer{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score sends one rerank request covering all passages. Scores come back
// ranked by the server; they are re-aligned to input order here.
func (s *HTTPScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	payload, err := json.Marshal(rerankRequest{
		Model: s.model,
		Query: query,
		Texts: passages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank call: status %d: %s", resp.StatusCode, body)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
