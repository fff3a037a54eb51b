// Package search implements the multi-level schema retrieval engine.
//
// A Searcher answers a natural-language question about a database schema by
// combining four retrieval levels over the schema graph:
//
//   - Level 1, exact match: business entities and tables whose names (or
//     entity attributes) contain the search terms
//   - Level 2, graph expansion: one or two hop neighborhoods of the Level 1 hits
//   - Level 3, pattern match: query patterns for the declared intent
//   - Level 4, vector search: cosine similarity per searchable label
//
// Level 1 always runs. When it already yields enough high-confidence hits the
// deeper levels are skipped; otherwise Levels 2 to 4 run concurrently. The
// merged candidates are enriched with data-quality and business-context
// scores, tables get their full TableContext, and Rerank fuses the five
// signals into one ordering. An empty ranking falls back to a relaxed vector
// search and then to domain discovery.
//
// # Usage
//
//	searcher := search.NewSearcher(store, embedder, search.DefaultConfig())
//	result, err := searcher.Retrieve(ctx, "customer accounts with balance over 1000", types.Hints{
//	    Domain:          "account",
//	    IncludePatterns: true,
//	})
//
// # Failure model
//
// A failing level, table-context fetch or missing-query record degrades the
// result and is reported in SearchMetadata; Retrieve only returns an error for
// invalid input. SearchByLabel rejects labels that do not carry embeddings
// with ErrInvalidLabel.
package search
