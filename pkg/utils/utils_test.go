package utils

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAsError(t *testing.T) {
	fn := func() (err error) {
		defer RecoverAsError(&err)
		panic("driver bug")
	}

	var panicErr *PanicError
	require.ErrorAs(t, fn(), &panicErr)
	assert.Equal(t, "driver bug", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.EqualError(t, panicErr, "panic: driver bug")

	original := errors.New("store down")
	fn = func() (err error) {
		defer RecoverAsError(&err)
		return original
	}
	assert.Same(t, original, fn())
}

func TestRecoverWithCallback(t *testing.T) {
	var got error
	func() {
		defer RecoverWithCallback(func(err error) { got = err })
		panic(42)
	}()
	var panicErr *PanicError
	require.ErrorAs(t, got, &panicErr)
	assert.Equal(t, 42, panicErr.Value)

	assert.NotPanics(t, func() {
		defer RecoverWithCallback(nil)
		panic("ignored")
	})
}

func TestExecuteWithResults(t *testing.T) {
	ctx := context.Background()

	results, errs := ExecuteWithResults(ctx, 2,
		func() (int, error) { time.Sleep(5 * time.Millisecond); return 1, nil },
		func() (int, error) { return 0, errors.New("boom") },
		func() (int, error) { panic("bad branch") },
		func() (int, error) { return 4, nil },
	)

	require.Len(t, results, 4)
	require.Len(t, errs, 4)
	assert.Equal(t, 1, results[0])
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[1], "boom")

	var panicErr *PanicError
	assert.True(t, errors.As(errs[2], &panicErr))
	assert.Equal(t, 4, results[3])
}

func TestExecuteWithResultsRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	fns := make([]func() (struct{}, error), 8)
	for i := range fns {
		fns[i] = func() (struct{}, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return struct{}{}, nil
		}
	}

	_, errs := ExecuteWithResults(context.Background(), 3, fns...)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestExecuteWithResultsEmpty(t *testing.T) {
	results, errs := ExecuteWithResults[int](context.Background(), 1)
	assert.Nil(t, results)
	assert.Nil(t, errs)
}

func TestMapConcurrent(t *testing.T) {
	out, errs := MapConcurrent(context.Background(), 4, []string{"a", "bb", "ccc"}, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	assert.Equal(t, []int{1, 2, 3}, out)
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestExecuteWithResultsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fns := make([]func() (int, error), 20)
	for i := range fns {
		fns[i] = func() (int, error) { return 1, nil }
	}
	results, errs := ExecuteWithResults(ctx, 1, fns...)
	require.Len(t, errs, 20)
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			assert.Zero(t, results[i])
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"different lengths", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNormalizedSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NormalizedSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.5, NormalizedSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, NormalizedSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestTopKByScore(t *testing.T) {
	items := []Ranked[string]{
		{Item: "a", Score: 0.2},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.9},
	}

	top := TopKByScore(items, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Item)
	assert.Equal(t, "d", top[1].Item, "ties keep input order")
	assert.Equal(t, "c", top[2].Item)

	assert.Len(t, TopKByScore(items, 10), 4)
	assert.Nil(t, TopKByScore(items, 0))
	assert.Equal(t, 0.2, items[0].Score, "input is not mutated")
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.3, Clamp01(0.3))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestDedupeFold(t *testing.T) {
	got := DedupeFold([]string{"Customer", " customer ", "", "Account", "ACCOUNT", "balance"})
	assert.Equal(t, []string{"Customer", "Account", "balance"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Truncate([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1}, Truncate([]int{1}, 5))
}

func TestGetSemaphoreLimit(t *testing.T) {
	t.Setenv("SEMAPHORE_LIMIT", "7")
	assert.Equal(t, 7, GetSemaphoreLimit())
	t.Setenv("SEMAPHORE_LIMIT", "nope")
	assert.Equal(t, DefaultSemaphoreLimit, GetSemaphoreLimit())
}
