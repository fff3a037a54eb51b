package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/telemetry"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

var (
	// ErrInvalidLabel is returned for labels that cannot be searched.
	ErrInvalidLabel = types.ErrInvalidLabel
	// ErrInvalidTopK is returned for a negative result limit.
	ErrInvalidTopK = errors.New("top_k must not be negative")
	// ErrEmptyQuery is returned when Retrieve is called without query text.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Embedder turns query text into a vector. embedder.Client satisfies it.
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// ContextCache stores hydrated table contexts between calls. *cache.Cache
// satisfies it.
type ContextCache interface {
	Get(key string, dst any) (bool, error)
	Set(key string, value any, ttl time.Duration) error
}

// Config tunes the retrieval pipeline.
type Config struct {
	// GroupID scopes every query to one namespace. Empty matches all nodes.
	GroupID string
	Weights types.RerankerWeights

	TopK                   int
	VectorThreshold        float64
	RerankThreshold        float64
	RelaxedVectorThreshold float64
	RelaxedRerankThreshold float64
	RelaxedTopK            int

	EarlyStopScore      float64
	EarlyStopMinResults int

	// MaxHops bounds entity expansion; 1 disables the second hop.
	MaxHops        int
	MaxConcurrency int
	// CentralityBoost adds a node's "centrality" attribute, capped at 0.3,
	// to its graph relevance during expansion.
	CentralityBoost bool

	QueryTimeout  time.Duration
	EmbedTimeout  time.Duration
	RecencyWindow time.Duration

	// ContextTTL is how long cached table contexts stay valid.
	ContextTTL time.Duration
	// VectorScanLimit caps the embedded nodes read per label.
	VectorScanLimit int
}

// DefaultConfig returns the default pipeline tuning.
func DefaultConfig() Config {
	return Config{
		Weights:                types.DefaultRerankerWeights(),
		TopK:                   5,
		VectorThreshold:        0.5,
		RerankThreshold:        0.25,
		RelaxedVectorThreshold: 0.25,
		RelaxedRerankThreshold: 0.15,
		RelaxedTopK:            10,
		EarlyStopScore:         0.90,
		EarlyStopMinResults:    3,
		MaxHops:                2,
		MaxConcurrency:         8,
		QueryTimeout:           10 * time.Second,
		EmbedTimeout:           15 * time.Second,
		RecencyWindow:          30 * 24 * time.Hour,
		ContextTTL:             10 * time.Minute,
		VectorScanLimit:        10000,
	}
}

// FromConfig builds a Config from the application configuration, keeping
// defaults for unset values.
func FromConfig(groupID string, rc config.RetrievalConfig) Config {
	cfg := DefaultConfig()
	cfg.GroupID = groupID
	w := rc.Weights
	if w.TextMatch+w.GraphRelevance+w.DataQuality+w.UsageFrequency+w.BusinessContext > 0 {
		cfg.Weights = types.NewRerankerWeights(w.TextMatch, w.GraphRelevance, w.DataQuality, w.UsageFrequency, w.BusinessContext)
	}
	if rc.TopK > 0 {
		cfg.TopK = rc.TopK
	}
	if rc.VectorThreshold > 0 {
		cfg.VectorThreshold = utils.Clamp01(rc.VectorThreshold)
	}
	if rc.RerankThreshold > 0 {
		cfg.RerankThreshold = utils.Clamp01(rc.RerankThreshold)
	}
	if rc.RelaxedVectorThreshold > 0 {
		cfg.RelaxedVectorThreshold = utils.Clamp01(rc.RelaxedVectorThreshold)
	}
	if rc.RelaxedRerankThreshold > 0 {
		cfg.RelaxedRerankThreshold = utils.Clamp01(rc.RelaxedRerankThreshold)
	}
	if rc.EarlyStopScore > 0 {
		cfg.EarlyStopScore = rc.EarlyStopScore
	}
	if rc.EarlyStopMinResults > 0 {
		cfg.EarlyStopMinResults = rc.EarlyStopMinResults
	}
	if rc.MaxHops > 0 {
		cfg.MaxHops = min(rc.MaxHops, 2)
	}
	if rc.MaxConcurrency > 0 {
		cfg.MaxConcurrency = rc.MaxConcurrency
	}
	if rc.QueryTimeout > 0 {
		cfg.QueryTimeout = rc.QueryTimeout
	}
	if rc.EmbedTimeout > 0 {
		cfg.EmbedTimeout = rc.EmbedTimeout
	}
	if rc.RecencyWindow > 0 {
		cfg.RecencyWindow = rc.RecencyWindow
	}
	return cfg
}

// Searcher runs the staged retrieval pipeline against a graph store. It holds
// no per-query state and is safe for concurrent use.
type Searcher struct {
	store    driver.GraphStore
	embedder Embedder
	cfg      Config
	logger   *slog.Logger
	queryLog telemetry.MissingQueryLog
	contexts ContextCache
	now      func() time.Time
}

// NewSearcher creates a Searcher. embedder may be nil, in which case vector
// search is always skipped.
func NewSearcher(store driver.GraphStore, embedder Embedder, cfg Config) *Searcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.RelaxedTopK <= 0 {
		cfg.RelaxedTopK = 10
	}
	if cfg.MaxHops <= 0 || cfg.MaxHops > 2 {
		cfg.MaxHops = 2
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = utils.GetSemaphoreLimit()
	}
	if cfg.VectorScanLimit <= 0 {
		cfg.VectorScanLimit = 10000
	}
	cfg.Weights = cfg.Weights.Normalize()

	return &Searcher{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   slog.Default(),
		queryLog: telemetry.NewSlogQueryLog(nil),
		now:      time.Now,
	}
}

// SetLogger replaces the logger.
func (s *Searcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetQueryLog replaces the log receiving queries that found nothing.
func (s *Searcher) SetQueryLog(log telemetry.MissingQueryLog) {
	if log != nil {
		s.queryLog = log
	}
}

// SetContextCache enables caching of hydrated table contexts.
func (s *Searcher) SetContextCache(c ContextCache) {
	s.contexts = c
}

// Config returns the effective configuration.
func (s *Searcher) Config() Config {
	return s.cfg
}

// query runs one graph call under the configured timeout.
func (s *Searcher) query(ctx context.Context, cypher string, params map[string]any) ([]driver.Record, error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}
	return s.store.Execute(ctx, cypher, params)
}

// EmbedQuery embeds text the way Retrieve does, under EmbedTimeout.
func (s *Searcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text)
}

// embed computes the query embedding under the configured timeout.
func (s *Searcher) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errNoEmbedder
	}
	if s.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		defer cancel()
	}
	vec, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errEmptyEmbedding
	}
	return vec, nil
}

var (
	errNoEmbedder     = errors.New("no embedder configured")
	errEmptyEmbedding = errors.New("embedder returned an empty vector")
)
