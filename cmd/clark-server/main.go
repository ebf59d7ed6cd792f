// Package main provides the standalone API server for clark.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarkhq/clark/internal/app"
	"github.com/clarkhq/clark/internal/config"
	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/server"
)

func main() {
	configFile := flag.String("config", "clark.yaml", "config file path")
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg, err := config.LoadWithFile(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	logger.Info("starting clark-server", "port", cfg.ServerPort)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := client.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		cancel()
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	if *wipeDB || os.Getenv("CLARK_WIPE_DB") == "true" {
		if err := client.WipeData(ctx); err != nil {
			cancel()
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}

	a, err := app.New(ctx, cfg, client, logger)
	cancel()
	if err != nil {
		logger.Error("failed to assemble pipeline", "error", err)
		os.Exit(1)
	}

	srv := server.New(":"+cfg.ServerPort, client, a.Ingest, a.Query, a.Chat, a.Conversation, a.Collector, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
