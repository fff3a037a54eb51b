package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder implements Client against the OpenAI embeddings API or any
// compatible service reachable at Config.BaseURL.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = openAIDimensions(config.Model)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func openAIDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

// Embed generates embeddings for the given texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.config.Model),
	}
	if strings.HasPrefix(e.config.Model, "text-embedding-3") && e.config.Dimensions != openAIDimensions(e.config.Model) {
		req.Dimensions = e.config.Dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNoEmbeddings, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	return embeddings[0], nil
}

// Dimensions returns the number of dimensions in the embeddings.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
