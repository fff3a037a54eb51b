// Package types defines the core data types for the schemagraph retrieval engine.
//
// This package contains the fundamental types used throughout schemagraph:
//   - Node and Edge: vertices and typed relationships of the schema graph
//   - Label: the closed set of node kinds (Table, Column, BusinessEntity, ...)
//   - ScoredItem: a retrieval candidate carrying five relevance signals
//   - RerankerWeights: the weighting profile used to fuse those signals
//   - TableContext: the hydrated view of one table
//   - Hints and SchemaSearchResult: the engine's input and output contracts
//
// # Labels
//
// Labels form a closed enum. ParseLabel rejects unknown names:
//
//	label, err := types.ParseLabel("Table")
//	if err != nil {
//	    // errors.Is(err, types.ErrInvalidLabel)
//	}
//
// # JSON Serialization
//
// All result types are plain structs with json tags and round-trip through
// encoding/json without loss.
package types
