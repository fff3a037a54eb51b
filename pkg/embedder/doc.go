// Package embedder provides text embedding clients for vector representations.
//
// This package defines the Client interface and provides implementations for
// OpenAI-compatible HTTP services and local EmbedEverything models.
//
// # Supported Providers
//
//   - OpenAI: text-embedding-3-small, text-embedding-3-large, text-embedding-ada-002,
//     or any compatible endpoint via Config.BaseURL
//   - EmbedEverything: local sentence-transformer models (default all-MiniLM-L6-v2)
//
// # Usage
//
//	client := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model: "text-embedding-3-small",
//	})
//	vec, err := client.EmbedSingle(ctx, "customer accounts with balance over 1000")
//
// # Decorators
//
// New assembles a provider with optional layers:
//   - RetryClient: exponential backoff on transient failures
//   - CircuitBreakerClient: stops calling a failing provider and raises an alert
//   - CachedClient: badger-backed memoization of repeated texts
package embedder
