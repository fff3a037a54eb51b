// Package gliner wraps a GLiNER span model for zero-shot named entity
// recognition over short query texts.
package gliner

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/soundprediction/go-gline-rs/pkg/gline"
)

// ErrModelNotLoaded is returned when the client was closed.
var ErrModelNotLoaded = errors.New("span model not loaded")

const (
	modelFile     = "model.onnx"
	tokenizerFile = "tokenizer.json"
)

// Entity is one recognized span.
type Entity struct {
	Text  string
	Label string
	Score float32
}

// Client runs a span model. The native session is not safe for concurrent
// use, so calls are serialized.
type Client struct {
	mu    sync.Mutex
	model *gline.Model
}

// NewClient loads a span model. modelID is either a local directory holding
// model.onnx and tokenizer.json or a Hugging Face model ID.
func NewClient(modelID string) (*Client, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("gliner model id is required")
	}
	if err := gline.Init(); err != nil {
		return nil, fmt.Errorf("failed to init gline: %w", err)
	}

	model, err := loadModel(modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load span model %s: %w", modelID, err)
	}
	return &Client{model: model}, nil
}

func loadModel(modelID string) (*gline.Model, error) {
	info, err := os.Stat(modelID)
	if err != nil || !info.IsDir() {
		return gline.NewSpanModelFromHF(modelID)
	}
	return gline.NewSpanModel(filepath.Join(modelID, modelFile), filepath.Join(modelID, tokenizerFile))
}

// Close releases the model. Further extraction calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		c.model.Close()
		c.model = nil
	}
	return nil
}

// ExtractEntities returns the spans of text matching any of labels, best
// score first.
func (c *Client) ExtractEntities(text string, labels []string) ([]Entity, error) {
	batch, err := c.ExtractBatch([]string{text}, labels)
	if err != nil {
		return nil, err
	}
	return batch[0], nil
}

// ExtractBatch runs one prediction over several texts. The result has one
// entry per text.
func (c *Client) ExtractBatch(texts, labels []string) ([][]Entity, error) {
	out := make([][]Entity, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if len(labels) == 0 {
		return nil, errors.New("at least one entity label is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil, ErrModelNotLoaded
	}

	results, err := c.model.Predict(texts, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to predict entities: %w", err)
	}
	for i := range out {
		if i >= len(results) {
			out[i] = []Entity{}
			continue
		}
		spans := make([]Entity, 0, len(results[i]))
		for _, s := range results[i] {
			spans = append(spans, Entity{Text: s.Text, Label: s.Label, Score: s.Probability})
		}
		out[i] = rankSpans(spans)
	}
	return out, nil
}

// rankSpans drops blank spans, keeps the best score for each text and label
// pair and orders the rest by descending score.
func rankSpans(spans []Entity) []Entity {
	best := make(map[string]int, len(spans))
	out := make([]Entity, 0, len(spans))
	for _, s := range spans {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		key := strings.ToLower(s.Label) + "\x00" + strings.ToLower(s.Text)
		if i, ok := best[key]; ok {
			if s.Score > out[i].Score {
				out[i] = s
			}
			continue
		}
		best[key] = len(out)
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Entity) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}
