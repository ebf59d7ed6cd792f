// Package cli provides the command-line interface for clark.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/clarkhq/clark/internal/app"
	"github.com/clarkhq/clark/internal/config"
	"github.com/clarkhq/clark/internal/db"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string

	// Global config, logger, and db client
	cfg       config.Config
	logger    *slog.Logger
	logCloser func() error
	dbClient  *db.Client

	// Lazy-initialized pipeline
	application *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "clark",
	Short: "Document Q&A with hybrid retrieval and branching conversations",
	Long: `Clark ingests course material into a hybrid dense/sparse index and
answers questions grounded in it, keeping every conversation as a
branchable message tree.

Documents are chunked, contextually enriched, and indexed per space.
Questions run through query rewriting, hybrid retrieval, reranking,
and grounded generation.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version, help, and stats never touch the database; stats talks
		// to a running server over HTTP.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "stats" {
			return nil
		}

		var err error
		cfg, err = config.LoadWithFile(configFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logCloser = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCloser != nil {
			_ = logCloser()
		}
	},
}

// getApp assembles the pipeline lazily. Commands that only touch the
// database use dbClient directly and never pay for model initialization.
func getApp(ctx context.Context) (*app.App, error) {
	if application != nil {
		return application, nil
	}
	var err error
	application, err = app.New(ctx, cfg, dbClient, logger)
	if err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	return application, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "clark.yaml", "config file path")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(statsCmd)
}
