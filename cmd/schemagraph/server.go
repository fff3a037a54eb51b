package schemagraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the schemagraph HTTP server",
	Long: `Start the schemagraph HTTP server to provide REST access to schema retrieval.

The server provides endpoints for:
- Multi-level schema search (POST /api/v1/schema/search)
- Semantic search by label (POST /api/v1/schema/search-by-label)
- Health, readiness and liveness checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")
	addStoreFlags(serverCmd)
}

// addStoreFlags registers the database, embedding and telemetry flags shared
// by every command that opens a client.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-driver", "neo4j", "Database driver (neo4j, ladybug)")
	cmd.Flags().String("db-uri", "bolt://localhost:7687", "Database URI or ladybug path")
	cmd.Flags().String("db-username", "", "Database username (not used for ladybug)")
	cmd.Flags().String("db-password", "", "Database password (not used for ladybug)")
	cmd.Flags().String("db-database", "", "Database name (not used for ladybug)")
	cmd.Flags().String("group-id", "", "Graph namespace to search")

	cmd.Flags().String("embedding-provider", "embedeverything", "Embedding provider (openai, embedeverything)")
	cmd.Flags().String("embedding-model", "", "Embedding model")
	cmd.Flags().String("embedding-api-key", "", "Embedding API key")
	cmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	cmd.Flags().String("hints", "", "Hint analyzer (none, keyword, gliner)")
	cmd.Flags().String("telemetry-parquet-path", "", "Directory receiving error-level log records as parquet")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize schemagraph: %w", err)
	}
	defer a.Close(ctx)

	srv := server.New(cfg, a.client, a.logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start()
	}()

	select {
	case err := <-serverErrChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		a.logger.Info("received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		a.logger.Info("server stopped gracefully")
		return nil
	}
}

// loadConfig loads the viper configuration and applies the shared flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	return cfg, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	set("db-driver", &cfg.Database.Driver)
	set("db-uri", &cfg.Database.URI)
	set("db-username", &cfg.Database.Username)
	set("db-password", &cfg.Database.Password)
	set("db-database", &cfg.Database.Database)
	set("group-id", &cfg.Database.GroupID)

	set("embedding-provider", &cfg.Embedding.Provider)
	set("embedding-model", &cfg.Embedding.Model)
	set("embedding-api-key", &cfg.Embedding.APIKey)
	set("embedding-base-url", &cfg.Embedding.BaseURL)

	set("hints", &cfg.Hints.Analyzer)
	set("telemetry-parquet-path", &cfg.Telemetry.ParquetPath)
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return validateStoreConfig(cfg)
}

func validateStoreConfig(cfg *config.Config) error {
	if cfg.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}
	return nil
}
