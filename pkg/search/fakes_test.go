package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
)

type storeCall struct {
	query  string
	params map[string]any
}

type responder func(params map[string]any) ([]driver.Record, error)

// fakeStore answers queries by their exact text. Unknown queries return no
// rows.
type fakeStore struct {
	mu        sync.Mutex
	responses map[string]responder
	calls     []storeCall
	// provider defaults to one without a cosine function, so vector search
	// scores rows in process unless a test opts into a real provider.
	provider driver.GraphProvider
}

func newFakeStore() *fakeStore {
	return &fakeStore{responses: make(map[string]responder), provider: "memory"}
}

func (f *fakeStore) on(query string, fn responder) *fakeStore {
	f.responses[query] = fn
	return f
}

func (f *fakeStore) rows(query string, rows ...driver.Record) *fakeStore {
	return f.on(query, func(map[string]any) ([]driver.Record, error) { return rows, nil })
}

func (f *fakeStore) fail(query string, err error) *fakeStore {
	return f.on(query, func(map[string]any) ([]driver.Record, error) { return nil, err })
}

func (f *fakeStore) Execute(ctx context.Context, query string, params map[string]any) ([]driver.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, storeCall{query: query, params: params})
	fn := f.responses[query]
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(params)
}

func (f *fakeStore) Provider() driver.GraphProvider { return f.provider }
func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) callsTo(query string) []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storeCall
	for _, c := range f.calls {
		if c.query == query {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.query)
	}
	return out
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type recordedQuery struct {
	query string
	terms []string
}

type recordingQueryLog struct {
	mu      sync.Mutex
	records []recordedQuery
	err     error
}

func (r *recordingQueryLog) Record(ctx context.Context, query string, terms []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedQuery{query: query, terms: terms})
	return r.err
}

type panickingQueryLog struct{}

func (panickingQueryLog) Record(context.Context, string, []string) error {
	panic("query log exploded")
}

func node(name, summary, attributes string) driver.Record {
	rec := driver.Record{"uuid": name + "-uuid", "name": name, "summary": summary}
	if attributes != "" {
		rec["attributes"] = attributes
	}
	return rec
}

func embedded(name, summary string, embedding []float32) driver.Record {
	rec := node(name, summary, "")
	anyVec := make([]any, len(embedding))
	for i, v := range embedding {
		anyVec[i] = float64(v)
	}
	rec["embedding"] = anyVec
	return rec
}

// unitAt returns a 2-d vector whose normalized similarity to {1, 0} is sim.
func unitAt(sim float64) []float32 {
	cos := 2*sim - 1
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSearcher(t *testing.T, store driver.GraphStore, emb Embedder) *Searcher {
	t.Helper()
	s := NewSearcher(store, emb, DefaultConfig())
	s.SetLogger(quietLogger())
	s.SetQueryLog(&recordingQueryLog{})
	return s
}

var errStoreDown = errors.New("store down")

func names(elements []types.SchemaElement) []string {
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		out = append(out, el.Name)
	}
	return out
}
