// Package utils provides utility functions for the schemagraph library.
//
// This package contains helper functions for:
//   - Concurrent fan-out with bounded parallelism (concurrent.go)
//   - Panic recovery for goroutines (recovery.go)
//   - Vector math and top-K selection (vector.go)
//   - Small numeric and string helpers (helpers.go)
package utils
