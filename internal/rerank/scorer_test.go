package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPScorer_AlignsScoresToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "q", req.Query)
		require.Len(t, req.Texts, 3)

		// Server returns results ranked by score, not input order.
		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.5},
			{Index: 1, Score: 0.1},
		})
	}))
	defer server.Close()

	scorer := NewHTTPScorer(server.URL, "")
	scores, err := scorer.Score(context.Background(), "q", []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.1, 0.9}, scores)
}

func TestHTTPScorer_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scorer := NewHTTPScorer(server.URL, "")
	_, err := scorer.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPScorer_EmptyPassages(t *testing.T) {
	scorer := NewHTTPScorer("http://unused", "")
	scores, err := scorer.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
