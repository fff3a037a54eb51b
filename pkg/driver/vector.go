package driver

import "fmt"

// VectorSimilarityExpr returns an expression scoring the list vec against the
// list query on [0,1] as (2 - cosineDistance)/2, computed inside the store.
// dims is the length both vectors must share. ok is false for providers
// without a cosine function; callers then score candidates in process.
func VectorSimilarityExpr(provider GraphProvider, vec, query string, dims int) (expr string, ok bool) {
	if dims <= 0 {
		return "", false
	}
	switch provider {
	case GraphProviderNeo4j:
		// already normalized to (1 + cos) / 2
		return fmt.Sprintf("vector.similarity.cosine(%s, %s)", vec, query), true
	case GraphProviderLadybug:
		// array functions need fixed-size arrays; embeddings are stored as lists
		return fmt.Sprintf("(1.0 + array_cosine_similarity(CAST(%s AS FLOAT[%d]), CAST(%s AS FLOAT[%d]))) / 2.0",
			vec, dims, query, dims), true
	default:
		return "", false
	}
}

// VectorParam converts an embedding to a query parameter both drivers accept.
func VectorParam(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
