// Package driver provides read-only graph store implementations for schemagraph.
//
// A GraphStore executes a parameterized Cypher query and returns its rows as
// Records keyed by the projected column names. Queries are written against
// scalar projections (n.name, n.attributes, ...) so the same text runs on
// every supported backend.
//
// # Supported Databases
//
//   - Neo4j: remote server accessed through managed read transactions
//   - Ladybug: embedded graph database (requires CGO)
//
// # Usage
//
//	store, err := driver.NewNeo4jStore(uri, username, password, database)
//	rows, err := store.Execute(ctx, "MATCH (t:Table) RETURN t.name AS name", nil)
//
// Stores can be wrapped with NewCircuitBreakerStore to stop hammering a
// failing backend.
//
// # Type Helpers
//
// The package provides safe type conversion helpers in type_helpers.go for
// converting database values to Go types without panicking on type assertion
// failures.
package driver
