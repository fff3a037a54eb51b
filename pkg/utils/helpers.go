package utils

import (
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultSemaphoreLimit = 20
)

// GetSemaphoreLimit returns the semaphore limit from environment variable or default
func GetSemaphoreLimit() int {
	val := os.Getenv("SEMAPHORE_LIMIT")
	if val == "" {
		return DefaultSemaphoreLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}

// Clamp01 restricts v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DedupeFold removes case-insensitive duplicates and blank entries while
// keeping first-seen order and spelling.
func DedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Truncate returns at most n leading elements of values.
func Truncate[T any](values []T, n int) []T {
	if n >= 0 && len(values) > n {
		return values[:n]
	}
	return values
}
