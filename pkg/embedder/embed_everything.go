package embedder

import (
	"context"
	"fmt"
	"sync"

	ee "github.com/soundprediction/go-embedeverything/pkg/embedder"
)

const (
	defaultLocalModel      = "all-MiniLM-L6-v2"
	defaultLocalDimensions = 384
	defaultLocalBatchSize  = 32
)

// EmbedEverythingClient runs a sentence embedding model in process through
// go-embedeverything. Schema descriptions are short, so batches are small and
// calls are serialized on the native model.
type EmbedEverythingClient struct {
	model     *ee.Embedder
	modelName string
	batchSize int

	mu   sync.Mutex
	dims int
}

// EmbedEverythingConfig extends Config with EmbedEverything-specific settings.
type EmbedEverythingConfig struct {
	*Config
}

// NewEmbedEverythingClient loads the configured model, downloading it on
// first use.
func NewEmbedEverythingClient(config *EmbedEverythingConfig) (*EmbedEverythingClient, error) {
	cfg := Config{}
	if config != nil && config.Config != nil {
		cfg = *config.Config
	}
	if cfg.Model == "" {
		cfg.Model = defaultLocalModel
	}
	if cfg.Dimensions <= 0 && cfg.Model == defaultLocalModel {
		cfg.Dimensions = defaultLocalDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultLocalBatchSize
	}

	model, err := ee.NewEmbedder(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding model %s: %w", cfg.Model, err)
	}

	return &EmbedEverythingClient{
		model:     model,
		modelName: cfg.Model,
		batchSize: cfg.BatchSize,
		dims:      cfg.Dimensions,
	}, nil
}

// Embed generates embeddings for texts in batches. The context is checked
// between batches since the native call cannot be interrupted.
func (e *EmbedEverythingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, fmt.Errorf("embedding model %s is closed", e.modelName)
	}

	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.model.Embed(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: %d of %d", ErrNoEmbeddings, len(vectors), end-start)
		}
		if e.dims <= 0 && len(vectors) > 0 {
			e.dims = len(vectors[0])
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *EmbedEverythingClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	return embeddings[0], nil
}

// Dimensions returns the vector length, learned from the first batch when the
// model is not one of the known defaults.
func (e *EmbedEverythingClient) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// Close releases the native model. Later calls fail.
func (e *EmbedEverythingClient) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}
