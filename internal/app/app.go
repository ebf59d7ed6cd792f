// Package app wires the full pipeline: database, models, enricher, indexes,
// reranker, and services. Both the CLI and the server binary assemble their
// stack through it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clarkhq/clark/internal/config"
	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/enrich"
	"github.com/clarkhq/clark/internal/index"
	"github.com/clarkhq/clark/internal/llm"
	"github.com/clarkhq/clark/internal/metrics"
	"github.com/clarkhq/clark/internal/parser"
	"github.com/clarkhq/clark/internal/rerank"
	"github.com/clarkhq/clark/internal/service"
)

// App holds the assembled services over one database connection.
type App struct {
	Collector    *metrics.Collector
	Embedder     *llm.Embedder
	Ingest       *service.IngestService
	Query        *service.QueryService
	Chat         *service.ChatService
	Conversation *service.ConversationService
}

// New assembles the pipeline on top of an existing database client. The
// caller owns the client and closes it.
func New(ctx context.Context, cfg config.Config, client *db.Client, logger *slog.Logger) (*App, error) {
	collector := metrics.NewCollector()

	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	answerModel, err := llm.NewModel(ctx, cfg, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("init answer model: %w", err)
	}

	// The contextualizer is usually a cheaper model than the answer model.
	contextualizerName := cfg.ContextualizerModel
	if contextualizerName == "" {
		contextualizerName = cfg.LLMModel
	}
	contextualizer, err := llm.NewModel(ctx, cfg, contextualizerName)
	if err != nil {
		return nil, fmt.Errorf("init contextualizer model: %w", err)
	}

	retry := llm.DefaultRetryPolicy()
	if cfg.EnrichRetries > 0 {
		retry.MaxRetries = cfg.EnrichRetries
	}
	enricher := enrich.New(contextualizer, retry, enrich.Config{
		ContextThreshold: cfg.ContextThreshold,
		CallInterval:     cfg.EnrichDelay,
	})

	hybrid := index.NewHybrid(
		index.NewSurrealDense(client),
		index.NewSurrealSparse(client),
		embedder,
	)

	if cfg.RerankURL == "" {
		logger.Warn("no rerank endpoint configured, answers will use fusion order")
	}
	compressor := rerank.NewCompressor(rerank.NewHTTPScorer(cfg.RerankURL, cfg.RerankModel), cfg.RerankTopN)

	ingest := service.NewIngestService(client, enricher, hybrid, collector, parser.ChunkConfig{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	})
	query := service.NewQueryService(hybrid, compressor, answerModel, client, collector, cfg.TopKRetrieval)
	conversation := service.NewConversationService(client)
	chat := service.NewChatService(conversation, query, client)

	logger.Info("pipeline assembled",
		"llm_model", cfg.LLMModel,
		"contextualizer_model", contextualizerName,
		"embed_model", cfg.EmbedModel,
		"embed_dimension", cfg.EmbedDimension,
	)

	return &App{
		Collector:    collector,
		Embedder:     embedder,
		Ingest:       ingest,
		Query:        query,
		Chat:         chat,
		Conversation: conversation,
	}, nil
}
