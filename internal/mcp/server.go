package mcp

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// Searcher is the part of the search engine the server needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.Result, error)
	ChunksOf(docID string) ([]store.Chunk, error)
	Around(chunkID string, radius int) ([]store.Chunk, error)
	Stats() search.Stats
}

var _ Searcher = (*search.Engine)(nil)

// StatusFunc reports the build state of the served index. It may be nil.
type StatusFunc func() (*index.StatusReport, error)

// Options configures tool defaults.
type Options struct {
	// TopK is used when a call does not set top_k.
	TopK int

	// Weights are used for weights a call does not set.
	Weights search.Weights

	// Status backs the build fields of index_status.
	Status StatusFunc
}

// maxTopK bounds top_k requested by clients.
const maxTopK = 50

// Server bridges MCP clients with a loaded search engine.
type Server struct {
	mcp    *mcp.Server
	engine Searcher
	opts   Options
	logger *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Hybrid passage search over the indexed documents. Combines keyword (BM25) and embedding similarity and returns the best passages with their relevance.",
	},
	{
		Name:        "chunks_of",
		Description: "Returns the chunks of one document in order (doc_id), or a chunk with its neighbours (chunk_id). Use it to read the context around a search hit.",
	},
	{
		Name:        "index_status",
		Description: "Reports chunk and document counts, the embedding model and whether the index is stale relative to its data directory.",
	},
}

// NewServer creates an MCP server over engine.
func NewServer(engine Searcher, opts Options) (*Server, error) {
	if engine == nil {
		return nil, stderrors.New("search engine is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	s := &Server{
		engine: engine,
		opts:   opts,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docsearch",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpChunksOfHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// Serve runs the server on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !stderrors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// CallTool invokes a tool by name, for use without a transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		in := SearchInput{}
		in.Query, _ = args["query"].(string)
		if k, ok := args["top_k"].(float64); ok {
			in.TopK = int(k)
		}
		if w, ok := args["lexical_weight"].(float64); ok {
			in.LexicalWeight = &w
		}
		if w, ok := args["semantic_weight"].(float64); ok {
			in.SemanticWeight = &w
		}
		return s.handleSearch(ctx, in)
	case "chunks_of":
		in := ChunksOfInput{}
		in.DocID, _ = args["doc_id"].(string)
		in.ChunkID, _ = args["chunk_id"].(string)
		if r, ok := args["radius"].(float64); ok {
			in.Radius = int(r)
		}
		return s.handleChunksOf(in)
	case "index_status":
		return s.handleIndexStatus()
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.handleSearch(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return textResult(FormatSearchResults(input.Query, out.Results)), out, nil
}

func (s *Server) mcpChunksOfHandler(_ context.Context, _ *mcp.CallToolRequest, input ChunksOfInput) (
	*mcp.CallToolResult,
	ChunksOfOutput,
	error,
) {
	out, err := s.handleChunksOf(input)
	if err != nil {
		return nil, ChunksOfOutput{}, err
	}
	return textResult(FormatChunks(out.Chunks)), out, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.handleIndexStatus()
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) handleSearch(ctx context.Context, input SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	opts := search.SearchOptions{
		TopK:    clampTopK(input.TopK, s.opts.TopK),
		Weights: s.opts.Weights,
	}
	if input.LexicalWeight != nil {
		opts.Weights.Lexical = *input.LexicalWeight
	}
	if input.SemanticWeight != nil {
		opts.Weights.Semantic = *input.SemanticWeight
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("top_k", opts.TopK))

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		s.logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(results)))

	out := SearchOutput{Results: make([]ResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, toResultOutput(r))
	}
	return out, nil
}

func (s *Server) handleChunksOf(input ChunksOfInput) (ChunksOfOutput, error) {
	var chunks []store.Chunk
	var err error

	switch {
	case input.ChunkID != "":
		radius := input.Radius
		if radius <= 0 {
			radius = 1
		}
		chunks, err = s.engine.Around(input.ChunkID, radius)
	case input.DocID != "":
		chunks, err = s.engine.ChunksOf(input.DocID)
	default:
		return ChunksOfOutput{}, NewInvalidParamsError("doc_id or chunk_id is required")
	}
	if err != nil {
		return ChunksOfOutput{}, MapError(err)
	}

	out := ChunksOfOutput{Chunks: make([]ChunkOutput, len(chunks))}
	for i, c := range chunks {
		out.Chunks[i] = ChunkOutput{
			ChunkID: c.ChunkID,
			DocID:   c.DocID,
			Index:   c.Metadata.Index,
			Text:    c.Text,
		}
	}
	return out, nil
}

func (s *Server) handleIndexStatus() (*IndexStatusOutput, error) {
	stats := s.engine.Stats()
	out := &IndexStatusOutput{
		Chunks:         stats.Chunks,
		Documents:      stats.Documents,
		ByStrategy:     make(map[string]int, len(stats.ByStrategy)),
		EmbeddingModel: stats.Model,
		Dimensions:     stats.Dimensions,
	}
	for k, v := range stats.ByStrategy {
		out.ByStrategy[string(k)] = v
	}

	if s.opts.Status == nil {
		return out, nil
	}
	report, err := s.opts.Status()
	if err != nil {
		s.logger.Warn("index_status_check_failed", slog.String("error", err.Error()))
		return out, nil
	}
	out.LexicalBackend = string(report.Manifest.Backend)
	out.BuildID = report.Manifest.BuildID
	out.BuiltAt = report.Manifest.CreatedAt.Format(time.RFC3339)
	stale := report.Stale
	out.Stale = &stale
	return out, nil
}

func toResultOutput(r search.Result) ResultOutput {
	return ResultOutput{
		ChunkID:        r.ChunkID,
		DocID:          r.DocID,
		Text:           r.Text,
		Score:          r.Score,
		Relevance:      string(r.Relevance),
		LexicalScore:   r.LexicalScore,
		SemanticScore:  r.SemanticScore,
		Index:          r.Metadata.Index,
		TotalChunks:    r.Metadata.TotalChunks,
		ChunkingMethod: string(r.Metadata.ChunkingStrategy),
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// clampTopK applies the default for unset values and bounds the result.
func clampTopK(topK, defaultVal int) int {
	if topK <= 0 {
		topK = defaultVal
	}
	return min(topK, maxTopK)
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	return uuid.NewString()[:8]
}
