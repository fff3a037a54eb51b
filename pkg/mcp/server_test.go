package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/soundprediction/schemagraph"
	"github.com/soundprediction/schemagraph/pkg/server/dto"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	err      error
	gotQuery string
	gotHints types.Hints
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, hints types.Hints) (*types.SchemaSearchResult, error) {
	f.gotQuery, f.gotHints = query, hints
	if f.err != nil {
		return nil, f.err
	}
	result := types.NewSchemaSearchResult(query, hints)
	result.Tables = []types.SchemaElement{{Name: "bank.account", Summary: "deposit accounts", Score: 0.8}}
	result.RankedResults = []types.ScoredItem{{Name: "bank.account", Label: types.LabelTable, FinalScore: 0.8}}
	return result, nil
}

func (f *fakeRetriever) SearchByLabelText(_ context.Context, label types.Label, _ string, _ int, _ float64, _ string) ([]types.ScoredItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []types.ScoredItem{{Name: "balance", Label: label, TextMatch: 0.9}}, nil
}

type contextRetriever struct {
	fakeRetriever
}

func (c *contextRetriever) TableContext(_ context.Context, table string) (*types.TableContext, error) {
	if table != "bank.account" {
		return nil, nil
	}
	return &types.TableContext{Table: table, Domain: "account"}, nil
}

func newTestServer(t *testing.T, r schemagraph.Retriever) *Server {
	t.Helper()
	s, err := NewServer(context.Background(), r, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return s
}

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

func TestNewServerRegistersTools(t *testing.T) {
	_, err := NewServer(context.Background(), nil, Options{})
	assert.Error(t, err)

	s := newTestServer(t, &fakeRetriever{})
	assert.Equal(t, []string{"search_by_label", "search_schema"}, s.ToolNames())

	s = newTestServer(t, &contextRetriever{})
	assert.Equal(t, []string{"get_table_context", "search_by_label", "search_schema"}, s.ToolNames())
}

func TestSearchSchemaTool(t *testing.T) {
	f := &fakeRetriever{}
	s := newTestServer(t, f)

	resp, err := s.SearchSchemaTool(toolCtx(), &SearchSchemaRequest{
		SearchRequest: dto.SearchRequest{Query: "account balances", Domain: "account", TopK: 3},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "1 results", resp.Message)
	assert.Equal(t, "account", f.gotHints.Domain)
	assert.Equal(t, 3, f.gotHints.TopK)
	_, ok := resp.Data.(*types.SchemaSearchResult)
	assert.True(t, ok)

	resp, err = s.SearchSchemaTool(toolCtx(), &SearchSchemaRequest{
		SearchRequest: dto.SearchRequest{Query: "account balances"},
		Format:        "context",
	})
	require.NoError(t, err)
	text, ok := resp.Data.(string)
	require.True(t, ok)
	assert.Contains(t, text, "bank.account")

	resp, err = s.SearchSchemaTool(toolCtx(), &SearchSchemaRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	f.err = errors.New("store down")
	resp, err = s.SearchSchemaTool(toolCtx(), &SearchSchemaRequest{SearchRequest: dto.SearchRequest{Query: "x"}})
	require.NoError(t, err, "tool failures are reported in the response")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "store down")
}

func TestSearchByLabelTool(t *testing.T) {
	s := newTestServer(t, &fakeRetriever{})

	resp, err := s.SearchByLabelTool(toolCtx(), &dto.SearchByLabelRequest{Label: "column", Text: "balance"})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Error)
	data := resp.Data.(dto.LabelSearchResponse)
	assert.Equal(t, types.LabelColumn, data.Label)
	assert.Equal(t, 1, data.Total)

	resp, _ = s.SearchByLabelTool(toolCtx(), &dto.SearchByLabelRequest{Label: "Domain", Text: "x"})
	assert.False(t, resp.Success)

	s = newTestServer(t, &fakeRetriever{err: schemagraph.ErrNoEmbedder})
	resp, _ = s.SearchByLabelTool(toolCtx(), &dto.SearchByLabelRequest{Label: "Table", Text: "x"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no embedder")
}

func TestTableContextTool(t *testing.T) {
	s := newTestServer(t, &contextRetriever{})

	resp, err := s.TableContextTool(toolCtx(), &TableContextRequest{Table: " bank.account "})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "account", resp.Data.(*types.TableContext).Domain)

	resp, _ = s.TableContextTool(toolCtx(), &TableContextRequest{Table: "nope"})
	assert.False(t, resp.Success)

	resp, _ = s.TableContextTool(toolCtx(), &TableContextRequest{})
	assert.False(t, resp.Success)

	resp, _ = newTestServer(t, &fakeRetriever{}).TableContextTool(toolCtx(), &TableContextRequest{Table: "bank.account"})
	assert.False(t, resp.Success)
}

func serveLines(t *testing.T, s *Server, lines ...string) []rpcResponse {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	var responses []rpcResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServeProtocol(t *testing.T) {
	s := newTestServer(t, &fakeRetriever{})

	responses := serveLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`not json`,
		`{"jsonrpc":"1.0","id":5,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"drop_tables","arguments":{}}}`,
	)
	require.Len(t, responses, 7, "notifications and blank lines get no response")

	initResult := responses[0].Result.(map[string]any)
	assert.Equal(t, ProtocolVersion, initResult["protocolVersion"])
	assert.Equal(t, "schemagraph", initResult["serverInfo"].(map[string]any)["name"])

	tools := responses[1].Result.(map[string]any)["tools"].([]any)
	require.Len(t, tools, 2)
	first := tools[0].(map[string]any)
	assert.Equal(t, "search_by_label", first["name"])
	assert.NotEmpty(t, first["inputSchema"])

	assert.Nil(t, responses[2].Error)
	assert.Equal(t, codeMethodNotFound, responses[3].Error.Code)
	assert.Equal(t, codeParseError, responses[4].Error.Code)
	assert.Equal(t, codeInvalidRequest, responses[5].Error.Code)
	assert.Equal(t, codeInvalidParams, responses[6].Error.Code)
	assert.Equal(t, json.RawMessage("6"), responses[6].ID)
}

func TestServeToolCall(t *testing.T) {
	f := &fakeRetriever{}
	s := newTestServer(t, f)

	responses := serveLines(t, s,
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"search_schema","arguments":{"query":"account balances","top_k":2}}}`,
	)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	assert.Equal(t, "account balances", f.gotQuery)
	assert.Equal(t, 2, f.gotHints.TopK)

	res := responses[0].Result.(map[string]any)
	assert.Nil(t, res["isError"])
	content := res["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", content["type"])

	var payload ToolResponse
	require.NoError(t, json.Unmarshal([]byte(content["text"].(string)), &payload))
	assert.True(t, payload.Success)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, &fakeRetriever{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()
	err := s.Serve(ctx, r, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
