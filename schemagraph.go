package schemagraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/embedder"
	"github.com/soundprediction/schemagraph/pkg/hints"
	"github.com/soundprediction/schemagraph/pkg/search"
	"github.com/soundprediction/schemagraph/pkg/telemetry"
	"github.com/soundprediction/schemagraph/pkg/types"
)

var (
	// ErrEmptyQuery is returned when a query has no text.
	ErrEmptyQuery = search.ErrEmptyQuery
	// ErrInvalidTopK is returned for a negative result limit.
	ErrInvalidTopK = search.ErrInvalidTopK
	// ErrInvalidLabel is returned for labels that cannot be searched.
	ErrInvalidLabel = search.ErrInvalidLabel
	// ErrNoEmbedder is returned by text searches on a client without an embedder.
	ErrNoEmbedder = errors.New("no embedder configured")
	// ErrNoStore is returned by NewClient without a graph store.
	ErrNoStore = errors.New("graph store is required")
)

// Client is the entry point for schema retrieval. It owns the graph store and
// the embedder passed to NewClient and closes them in Close.
type Client struct {
	store    driver.GraphStore
	embedder embedder.Client
	searcher *search.Searcher
	analyzer hints.Analyzer
	config   *Config
	logger   *slog.Logger
}

// Config holds configuration for the Client.
type Config struct {
	// GroupID scopes every query to one namespace of the schema graph.
	GroupID string
	// Search tunes the retrieval pipeline. A zero value selects
	// search.DefaultConfig with GroupID applied.
	Search *search.Config
	// Analyzer fills hints the caller left empty. Nil disables analysis.
	Analyzer hints.Analyzer
	// QueryLog receives queries that found nothing.
	QueryLog telemetry.MissingQueryLog
	// ContextCache caches hydrated table contexts.
	ContextCache search.ContextCache
}

// NewClient creates a new schema retrieval client. embedderClient may be nil,
// in which case vector search is skipped.
func NewClient(store driver.GraphStore, embedderClient embedder.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	searchCfg := search.DefaultConfig()
	if config.Search != nil {
		searchCfg = *config.Search
	}
	if searchCfg.GroupID == "" {
		searchCfg.GroupID = config.GroupID
	}

	var emb search.Embedder
	if embedderClient != nil {
		emb = embedderClient
	}
	searcher := search.NewSearcher(store, emb, searchCfg)
	searcher.SetLogger(logger)
	if config.QueryLog != nil {
		searcher.SetQueryLog(config.QueryLog)
	}
	if config.ContextCache != nil {
		searcher.SetContextCache(config.ContextCache)
	}

	return &Client{
		store:    store,
		embedder: embedderClient,
		searcher: searcher,
		analyzer: config.Analyzer,
		config:   config,
		logger:   logger,
	}, nil
}

// Retrieve answers a schema question. Hints the caller supplied always win;
// the configured analyzer only fills the empty ones.
func (c *Client) Retrieve(ctx context.Context, query string, hints types.Hints) (*types.SchemaSearchResult, error) {
	return c.searcher.Retrieve(ctx, query, c.analyze(ctx, query, hints))
}

func (c *Client) analyze(ctx context.Context, query string, explicit types.Hints) types.Hints {
	if c.analyzer == nil {
		return explicit
	}
	return hints.Enrich(ctx, c.analyzer, query, explicit, c.logger)
}

// SearchByLabel runs a vector search restricted to one label.
func (c *Client) SearchByLabel(ctx context.Context, label types.Label, embedding []float32, topK int, threshold float64, database string) ([]types.ScoredItem, error) {
	return c.searcher.SearchByLabel(ctx, label, embedding, topK, threshold, database)
}

// SearchByLabelText embeds text and runs SearchByLabel with it.
func (c *Client) SearchByLabelText(ctx context.Context, label types.Label, text string, topK int, threshold float64, database string) ([]types.ScoredItem, error) {
	if !label.Searchable() {
		return nil, fmt.Errorf("%w: %q is not searchable", ErrInvalidLabel, label)
	}
	if c.embedder == nil {
		return nil, ErrNoEmbedder
	}
	embedding, err := c.searcher.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search text: %w", err)
	}
	return c.SearchByLabel(ctx, label, embedding, topK, threshold, database)
}

// TableContext returns the hydrated view of one table, or nil when the table
// does not exist.
func (c *Client) TableContext(ctx context.Context, table string) (*types.TableContext, error) {
	return c.searcher.TableContext(ctx, table)
}

// Ping verifies the graph store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if hc, ok := c.store.(driver.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	_, err := c.store.Execute(ctx, "RETURN 1 AS ok", nil)
	return err
}

// Searcher exposes the underlying pipeline.
func (c *Client) Searcher() *search.Searcher {
	return c.searcher
}

// GetLogger returns the logger.
func (c *Client) GetLogger() *slog.Logger {
	return c.logger
}

// Close closes the embedder and the graph store.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close embedder: %w", err))
		}
	}
	if err := c.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close graph store: %w", err))
	}
	return errors.Join(errs...)
}
