// Package schemagraph retrieves the database schema elements relevant to a
// natural-language question from a schema knowledge graph.
//
// The graph holds tables, columns, business entities, query patterns,
// domains, business rules and code sets. Retrieval runs in levels: exact
// name matching, graph expansion from the matched nodes, query-pattern
// matching and vector similarity. Candidates are enriched with table context
// and reranked on five weighted signals.
//
// # Basic Usage
//
//	store, err := driver.NewNeo4jStore("bolt://localhost:7687", "neo4j", "password", "neo4j")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	emb := embedder.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), embedder.Config{Model: "text-embedding-3-small"})
//
//	client, err := schemagraph.NewClient(store, emb, &schemagraph.Config{GroupID: "warehouse"}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	result, err := client.Retrieve(ctx, "customer accounts with balance over 1000", types.Hints{
//		Domain: "account",
//		TopK:   5,
//	})
//
// # Hints
//
// Hints carry what the caller already knows: entities, business terms,
// column names, the database, the domain and the intent. A hints.Analyzer set
// in Config fills only the fields the caller left empty.
//
// # Failure Model
//
// Only an empty query or a negative TopK fail a retrieval. A failing level,
// an unavailable embedder or a missing table context degrade the result and
// are reported in SearchMetadata. When nothing clears the rerank threshold, a
// relaxed vector search runs and then domain discovery, and the query is
// recorded in the missing-query log.
package schemagraph
