package embedder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// RetryConfig controls RetryClient. Zero fields take the defaults below.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first call.
	MaxRetries int
	// InitialDelay is the wait before the first retry. It doubles on each
	// later retry, up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// BackoffMultiplier replaces the doubling factor when set.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the settings used when none are given.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	return c
}

// delay returns the wait before retry n (1-based), with up to 20% jitter
// subtracted so concurrent queries do not hit a recovering provider together.
func (c RetryConfig) delay(n int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < n && d < float64(c.MaxDelay); i++ {
		d *= c.BackoffMultiplier
	}
	d = min(d, float64(c.MaxDelay))
	return time.Duration(d * (1 - 0.2*rand.Float64()))
}

// RetryClient retries transient provider failures with exponential backoff.
type RetryClient struct {
	client Client
	config RetryConfig
}

// NewRetryClient wraps client. A nil config uses DefaultRetryConfig.
func NewRetryClient(client Client, config *RetryConfig) *RetryClient {
	cfg := *DefaultRetryConfig()
	if config != nil {
		cfg = config.withDefaults()
	}
	return &RetryClient{client: client, config: cfg}
}

// Embed implements Client.
func (r *RetryClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return withRetry(ctx, r.config, func() ([][]float32, error) {
		return r.client.Embed(ctx, texts)
	})
}

// EmbedSingle implements Client.
func (r *RetryClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, r.config, func() ([]float32, error) {
		return r.client.EmbedSingle(ctx, text)
	})
}

// Dimensions implements Client.
func (r *RetryClient) Dimensions() int {
	return r.client.Dimensions()
}

// Close implements Client.
func (r *RetryClient) Close() error {
	return r.client.Close()
}

func withRetry[T any](ctx context.Context, cfg RetryConfig, call func() (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 0; ; attempt++ {
		var out T
		if out, err = call(); err == nil {
			return out, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(cfg.delay(attempt + 1))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
		}
	}
	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, err)
}

var transientMarkers = []string{
	"429", "too many requests", "rate limit",
	"500", "internal server error",
	"502", "bad gateway",
	"503", "service unavailable",
	"504", "gateway timeout",
	"timeout", "connection reset", "connection refused", "temporary failure",
}

// IsRetryable reports whether err looks transient: a 429 or 5xx answer from
// an OpenAI-compatible API, or a network failure. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if status, ok := providerStatus(err); ok {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func providerStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
