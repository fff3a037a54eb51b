package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/alert"
	"github.com/soundprediction/schemagraph/pkg/cache"
	"github.com/soundprediction/schemagraph/pkg/config"
)

var (
	// ErrNoEmbeddings is returned when a provider answers with fewer vectors than texts.
	ErrNoEmbeddings = errors.New("no embeddings returned")
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Client turns text into vectors.
type Client interface {
	// Embed generates embeddings for the given texts, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the length of the produced vectors.
	Dimensions() int
	// Close releases any resources held by the client.
	Close() error
}

// Config holds provider-independent embedding settings.
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	BatchSize  int
}

// FromConfig converts the embedding section of the application config.
func FromConfig(cfg config.EmbeddingConfig) Config {
	return Config{
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Dimensions: cfg.Dimensions,
	}
}

// Options holds the optional decorators New applies around the provider client.
type Options struct {
	Breaker config.CircuitBreakerConfig
	Alerter alert.Alerter
	Cache   *cache.Cache
	Logger  *slog.Logger
}

// New builds the configured provider and wraps it with retry, circuit breaker
// and cache layers, innermost first.
func New(cfg config.EmbeddingConfig, opts Options) (Client, error) {
	var client Client
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client = NewOpenAIEmbedder(cfg.APIKey, FromConfig(cfg))
	case "embedeverything", "":
		ee, err := NewEmbedEverythingClient(&EmbedEverythingConfig{Config: ptr(FromConfig(cfg))})
		if err != nil {
			return nil, err
		}
		client = ee
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.MaxRetries > 0 {
		rc := DefaultRetryConfig()
		rc.MaxRetries = cfg.MaxRetries
		client = NewRetryClient(client, rc)
	}
	if opts.Breaker.Enabled {
		client = NewCircuitBreakerClient(client, opts.Breaker, opts.Alerter, "embedder-"+cfg.Provider)
	}
	if opts.Cache != nil {
		cached := NewCachedClient(client, opts.Cache, cfg.Provider+"/"+cfg.Model)
		cached.SetLogger(opts.Logger)
		client = cached
	}
	return client, nil
}

func ptr[T any](v T) *T {
	return &v
}
