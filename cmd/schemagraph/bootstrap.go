package schemagraph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/soundprediction/schemagraph"
	"github.com/soundprediction/schemagraph/pkg/alert"
	"github.com/soundprediction/schemagraph/pkg/cache"
	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/embedder"
	"github.com/soundprediction/schemagraph/pkg/hints"
	sglogger "github.com/soundprediction/schemagraph/pkg/logger"
	"github.com/soundprediction/schemagraph/pkg/search"
	"github.com/soundprediction/schemagraph/pkg/telemetry"
)

// app holds everything a command needs and the resources to release on exit.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *schemagraph.Client
	closers []func() error
}

// Close closes the client first, then the remaining resources in reverse
// order of creation.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		if err := a.client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// newLogger builds the console logger and chains the parquet and SQL
// telemetry handlers in front of it when configured.
func newLogger(ctx context.Context, cfg *config.Config, out io.Writer) (*slog.Logger, []func() error, error) {
	level, err := sglogger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	handler := sglogger.NewLogger(out, sglogger.Options{
		Level:   level,
		Format:  cfg.Log.Format,
		NoColor: os.Getenv("NO_COLOR") != "",
	}).Handler()

	var closers []func() error
	if cfg.Telemetry.ParquetPath != "" {
		ph, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath, cfg.Telemetry.BatchSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize parquet telemetry: %w", err)
		}
		handler = ph
		closers = append(closers, ph.Close)
	}
	if cfg.Telemetry.SQLDialect != "" && cfg.Telemetry.SQLDSN != "" {
		db, err := sql.Open(cfg.Telemetry.SQLDialect, cfg.Telemetry.SQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open telemetry database: %w", err)
		}
		sh, err := telemetry.NewSQLHandler(ctx, handler, db, cfg.Telemetry.SQLDialect, cfg.Telemetry.SQLTable)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		handler = sh
		closers = append(closers, db.Close)
	}
	return slog.New(handler), closers, nil
}

// newApp wires the configured store, embedder, analyzer, cache and query log
// into a client. Embedding failures are logged and retrieval runs without
// the vector level.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	logger, closers, err := newLogger(ctx, cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: closers}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()

	alerter := alert.New(cfg.Alert, logger)

	var c *cache.Cache
	if cfg.Cache.Enabled {
		c, err = cache.Open(cache.FromConfig(cfg.Cache))
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		a.onClose(c.Close)
	}

	store, err := driver.NewStore(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	if cfg.CircuitBreaker.Enabled {
		store = driver.NewCircuitBreakerStore(store, cfg.CircuitBreaker, alerter, "graph-"+string(store.Provider()))
	}

	opts := embedder.Options{Breaker: cfg.CircuitBreaker, Alerter: alerter, Logger: logger}
	if c != nil {
		opts.Cache = c.WithNamespace("embedding")
	}
	emb, embErr := embedder.New(cfg.Embedding, opts)
	if embErr != nil {
		logger.Warn("embedder unavailable, vector search disabled", "provider", cfg.Embedding.Provider, "error", embErr)
		emb = nil
	}

	analyzer, err := hints.New(cfg.Hints, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to create hints analyzer: %w", err)
	}
	if closer, ok := analyzer.(io.Closer); ok {
		a.onClose(closer.Close)
	}

	qlog, err := telemetry.NewQueryLog(ctx, cfg.QueryLog, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	a.onClose(qlog.Close)

	searchCfg := search.FromConfig(cfg.Database.GroupID, cfg.Retrieval)
	clientCfg := &schemagraph.Config{
		GroupID:  cfg.Database.GroupID,
		Search:   &searchCfg,
		Analyzer: analyzer,
		QueryLog: qlog,
	}
	if c != nil {
		clientCfg.ContextCache = c.WithNamespace("context")
	}

	a.client, err = schemagraph.NewClient(store, emb, clientCfg, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	logger.Info("schemagraph initialized",
		"driver", store.Provider(),
		"embedder", cfg.Embedding.Provider,
		"vector_search", emb != nil,
		"hints", cfg.Hints.Analyzer)
	return a, nil
}
