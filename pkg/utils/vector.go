package utils

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Vectors of different length, empty vectors and zero vectors
// score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, sqA, sqB float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		sqA += float64(x) * float64(x)
		sqB += y * y
	}
	if sqA == 0 || sqB == 0 {
		return 0
	}
	return dot / math.Sqrt(sqA*sqB)
}

// NormalizedSimilarity maps cosine similarity onto [0,1] as
// (2 - cosineDistance) / 2, where cosineDistance = 1 - cosineSimilarity.
func NormalizedSimilarity(a, b []float32) float64 {
	distance := 1 - CosineSimilarity(a, b)
	return Clamp01((2 - distance) / 2)
}

// Ranked pairs an item with a score for top-K selection.
type Ranked[T any] struct {
	Item  T
	Score float64
}

// TopKByScore returns the k best items by descending score. Ties keep their
// input order and the input slice is not modified.
func TopKByScore[T any](items []Ranked[T], k int) []Ranked[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(x, y Ranked[T]) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return out[:min(k, len(out))]
}
