// Package server exposes the HTTP API: ingestion, chat, thread and branch
// navigation, and runtime stats.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/metrics"
	"github.com/clarkhq/clark/internal/service"
)

// Server wires the services behind the JSON API.
type Server struct {
	db           *db.Client
	ingest       *service.IngestService
	query        *service.QueryService
	chat         *service.ChatService
	conversation *service.ConversationService
	collector    *metrics.Collector
	logger       *slog.Logger

	httpServer *http.Server
}

// New creates the API server listening on addr.
func New(addr string, client *db.Client, ingest *service.IngestService, query *service.QueryService, chat *service.ChatService, conversation *service.ConversationService, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		db:           client,
		ingest:       ingest,
		query:        query,
		chat:         chat,
		conversation: conversation,
		collector:    collector,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /spaces", s.handleCreateSpace)
	mux.HandleFunc("GET /spaces", s.handleListSpaces)

	mux.HandleFunc("POST /documents", s.handleIngest)
	mux.HandleFunc("GET /spaces/{spaceID}/documents", s.handleListDocuments)
	mux.HandleFunc("GET /documents/{documentID}/threads", s.handleDocumentThreads)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/stream", s.handleChatStream)

	mux.HandleFunc("GET /spaces/{spaceID}/threads", s.handleListThreads)
	mux.HandleFunc("GET /threads/{threadID}", s.handleGetThread)
	mux.HandleFunc("POST /threads/{threadID}/messages", s.handleThreadMessage)
	mux.HandleFunc("POST /threads/{threadID}/branch", s.handleBranch)
	mux.HandleFunc("GET /branches/{branchID}", s.handleGetBranch)

	mux.HandleFunc("GET /stats", s.handleStats)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
