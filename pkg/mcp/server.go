// Package mcp exposes schema retrieval as Model Context Protocol tools. Tools
// are defined with Genkit and served as newline-delimited JSON-RPC over a
// reader/writer pair, normally stdin and stdout.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/soundprediction/schemagraph"
)

// ProtocolVersion is the MCP revision announced during initialize.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// maxLineSize bounds a single request line.
const maxLineSize = 4 << 20

var ErrUnknownTool = errors.New("unknown tool")

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	Logger  *slog.Logger
}

// Server serves the schema tools to one MCP client.
type Server struct {
	retriever schemagraph.Retriever
	opts      Options
	logger    *slog.Logger

	tools map[string]ai.Tool
	mu    sync.Mutex // serializes writes
}

// NewServer initializes Genkit and registers the schema tools. The
// get_table_context tool is only offered when retriever also implements
// ContextProvider.
func NewServer(ctx context.Context, retriever schemagraph.Retriever, opts Options) (*Server, error) {
	if retriever == nil {
		return nil, errors.New("mcp server needs a retriever")
	}
	if opts.Name == "" {
		opts.Name = "schemagraph"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		retriever: retriever,
		opts:      opts,
		logger:    opts.Logger,
		tools:     make(map[string]ai.Tool),
	}

	g := genkit.Init(ctx)
	s.RegisterTools(g)
	return s, nil
}

// RegisterTools registers all MCP tools with Genkit
func (s *Server) RegisterTools(g *genkit.Genkit) {
	s.tools["search_schema"] = genkit.DefineTool(g, "search_schema",
		"Find the tables, columns, business entities and query patterns relevant to a natural language question, with full table context.",
		s.SearchSchemaTool)

	s.tools["search_by_label"] = genkit.DefineTool(g, "search_by_label",
		"Semantic search restricted to one node label: Table, Column, BusinessEntity or QueryPattern.",
		s.SearchByLabelTool)

	if _, ok := s.retriever.(ContextProvider); ok {
		s.tools["get_table_context"] = genkit.DefineTool(g, "get_table_context",
			"Get columns, related tables, business rules and code sets for one table.",
			s.TableContextTool)
	}

	s.logger.Info("MCP tools registered", "tools", s.ToolNames())
}

// ToolNames returns the registered tool names in sorted order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Serve reads requests from r until EOF or ctx is done and writes responses
// to w. Requests are handled one at a time.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.logger.Info("MCP server is ready to accept requests", "name", s.opts.Name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read request: %w", err)
					}
				default:
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}
			if resp := s.handleLine(ctx, line); resp != nil {
				if err := s.write(w, resp); err != nil {
					return err
				}
			}
		}
	}
}

func (s *Server) write(w io.Writer, resp *rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// handleLine answers one request. Notifications get no response.
func (s *Server) handleLine(ctx context.Context, line []byte) *rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(json.RawMessage("null"), codeParseError, err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(idOrNull(req.ID), codeInvalidRequest, "invalid request")
	}
	if len(req.ID) == 0 {
		s.logger.Debug("MCP notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return result(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.opts.Name, "version": s.opts.Version},
		})
	case "ping":
		return result(req.ID, map[string]any{})
	case "tools/list":
		return result(req.ID, map[string]any{"tools": s.describeTools()})
	case "tools/call":
		var params callParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		res, err := s.callTool(ctx, params)
		if errors.Is(err, ErrUnknownTool) {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		return result(req.ID, res)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) describeTools() []toolDescriptor {
	out := make([]toolDescriptor, 0, len(s.tools))
	for _, name := range s.ToolNames() {
		def := s.tools[name].Definition()
		out = append(out, toolDescriptor{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return out
}

func (s *Server) callTool(ctx context.Context, params callParams) (*callResult, error) {
	tool, ok := s.tools[params.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, params.Name)
	}
	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	out, err := tool.RunRaw(ctx, args)
	if err != nil {
		s.logger.Error("MCP tool failed", "tool", params.Name, "error", err)
		return &callResult{Content: []textContent{{Type: "text", Text: err.Error()}}, IsError: true}, nil
	}

	text, err := json.Marshal(out)
	if err != nil {
		return &callResult{Content: []textContent{{Type: "text", Text: err.Error()}}, IsError: true}, nil
	}
	var status struct {
		Success *bool `json:"success"`
	}
	_ = json.Unmarshal(text, &status)
	isError := status.Success != nil && !*status.Success
	return &callResult{Content: []textContent{{Type: "text", Text: string(text)}}, IsError: isError}, nil
}

func result(id json.RawMessage, v any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Result: v}
}

func errorResponse(id json.RawMessage, code int, message string) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
