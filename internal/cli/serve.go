package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/clarkhq/clark/internal/server"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the JSON API server: ingestion, chat, thread and branch
navigation, and runtime stats.

Examples:
  clark serve
  clark serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (defaults to CLARK_SERVER_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	port := servePort
	if port == "" {
		port = cfg.ServerPort
	}

	srv := server.New(":"+port, dbClient, a.Ingest, a.Query, a.Chat, a.Conversation, a.Collector, logger)
	return srv.Run(ctx)
}
