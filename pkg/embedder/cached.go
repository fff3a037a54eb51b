package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/soundprediction/schemagraph/pkg/cache"
)

// CachedClient memoizes embeddings in a badger cache keyed by model and text.
// Cache failures are logged and fall through to the wrapped client.
type CachedClient struct {
	client Client
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCachedClient wraps client. modelKey separates entries produced by
// different models sharing one cache.
func NewCachedClient(client Client, c *cache.Cache, modelKey string) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  c.WithNamespace("embed:" + modelKey),
		logger: slog.Default(),
	}
}

// SetLogger replaces the logger.
func (c *CachedClient) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns cached vectors where available and embeds only the misses.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		var vec []float32
		found, err := c.cache.Get(textKey(text), &vec)
		if err != nil {
			c.logger.Warn("embedding cache read failed", "error", err)
		}
		if found {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.client.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, ErrNoEmbeddings
	}
	for j, vec := range fresh {
		out[missIdx[j]] = vec
		if err := c.cache.Set(textKey(missTexts[j]), vec, 0); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}

// EmbedSingle implements Client.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	return embeddings[0], nil
}

// Dimensions implements Client.
func (c *CachedClient) Dimensions() int {
	return c.client.Dimensions()
}

// Close closes the wrapped client. The cache is owned by the caller.
func (c *CachedClient) Close() error {
	return c.client.Close()
}
