package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devmemory/memento/internal/engine"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// protocolVersion is the MCP protocol version this server speaks.
const protocolVersion = "2024-11-05"

// serverVersion is reported to clients during initialize.
const serverVersion = "0.1.0"

// Server dispatches JSON-RPC 2.0 requests to the memory engine's operations.
type Server struct {
	eng       *engine.Engine
	sessionID string
}

// NewServer builds a Server bound to eng. sessionID scopes captures made
// without an explicit scope_id when scope == "session".
func NewServer(eng *engine.Engine, sessionID string) *Server {
	return &Server{eng: eng, sessionID: sessionID}
}

// HandleRequest parses a single JSON-RPC request line and returns the
// encoded JSON-RPC response. It never returns an error for malformed input;
// malformed input instead produces a JSON-RPC error response, matching
// clients' expectation of always getting back a response frame.
func (s *Server) HandleRequest(ctx context.Context, raw []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return json.Marshal(JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &JSONRPCError{Code: ErrCodeParseError, Message: "invalid JSON: " + err.Error()},
		})
	}

	var (
		result interface{}
		rpcErr *JSONRPCError
	)

	switch req.Method {
	case "initialize":
		result = MCPInitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    MCPServerCapabilities{Tools: &MCPToolsCapability{}},
			ServerInfo:      MCPServerInfo{Name: "memento", Version: serverVersion},
		}
	case "tools/list":
		result = MCPToolsListResult{Tools: toolDescriptors()}
	case "tools/call":
		result, rpcErr = s.handleToolCall(ctx, req.Params)
	default:
		rpcErr = &JSONRPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}

	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
	return json.Marshal(resp)
}

func (s *Server) handleToolCall(ctx context.Context, params interface{}) (*MCPToolCallResult, *JSONRPCError) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: "invalid tool call params"}
	}
	var call MCPToolCallParams
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: "invalid tool call params: " + err.Error()}
	}

	argsRaw, err := json.Marshal(call.Arguments)
	if err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: "invalid tool arguments"}
	}

	var (
		out interface{}
		callErr error
	)
	switch call.Name {
	case "capture":
		out, callErr = s.toolCapture(ctx, argsRaw)
	case "search":
		out, callErr = s.toolSearch(ctx, argsRaw)
	case "show":
		out, callErr = s.toolShow(ctx, argsRaw)
	case "relate":
		out, callErr = s.toolRelate(ctx, argsRaw)
	case "chain":
		out, callErr = s.toolChain(ctx, argsRaw)
	case "consolidate":
		out, callErr = s.toolConsolidate(ctx)
	case "assess":
		out, callErr = s.toolAssess(ctx, argsRaw)
	case "history":
		out, callErr = s.toolHistory(ctx, argsRaw)
	default:
		return nil, &JSONRPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("unknown tool %q", call.Name)}
	}

	if callErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: callErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInternalError, Message: "failed to marshal tool result"}
	}
	return &MCPToolCallResult{Content: []MCPToolCallContent{{Type: "text", Text: string(text)}}}, nil
}

func (s *Server) toolCapture(ctx context.Context, argsRaw []byte) (*CaptureResult, error) {
	var args CaptureArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid capture arguments: %w", err)
	}

	kind, err := resolveKind(args.Kind)
	if err != nil {
		return nil, err
	}

	input := types.CreateMemoryInput{
		Title:      args.Title,
		Content:    args.Content,
		Kind:       kind,
		Tags:       args.Tags,
		Importance: args.Importance,
		Scope:      types.ScopeKind(args.Scope),
		ScopeID:    args.ScopeID,
		ProjectID:  args.ProjectID,
		Privacy:    types.MemoryPrivacy(args.Privacy),
		RelatedTo:  args.RelatedTo,
	}
	if args.Scope == string(types.ScopeSession) && args.ScopeID == "" {
		input.ScopeID = s.sessionID
	}

	createdBy := args.CreatedBy
	if createdBy == "" {
		createdBy = "mcp-client"
	}

	result, err := s.eng.Capture(ctx, input, createdBy)
	if err != nil {
		return nil, err
	}

	out := &CaptureResult{ID: result.Memory.ID, Decision: string(result.Decision)}
	if result.Decision == "add" {
		out.Decision = "create"
	}
	switch result.Decision {
	case "skip", "update":
		out.Duplicate = true
		out.ExistingID = result.Memory.ID
		out.Message = fmt.Sprintf("capture %s: merged with existing memory", result.Decision)
	default:
		out.Message = "captured new memory"
	}
	return out, nil
}

func resolveKind(s string) (types.MemoryKind, error) {
	if s == "" {
		return types.KindObservation, nil
	}
	return types.ParseMemoryKind(s)
}

func (s *Server) toolSearch(ctx context.Context, argsRaw []byte) (*SearchResult, error) {
	var args SearchArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid search arguments: %w", err)
	}

	query := types.SearchQuery{Query: args.Query, ProjectID: args.ProjectID, Tags: args.Tags, Limit: args.Limit}
	if query.Limit > 100 {
		query.Limit = 100
	}
	if args.Kind != "" {
		k, err := types.ParseMemoryKind(args.Kind)
		if err != nil {
			return nil, err
		}
		query.Kind = &k
	}

	ranked, err := s.eng.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	indexes := make([]types.MemoryIndex, 0, len(ranked))
	for _, r := range ranked {
		indexes = append(indexes, types.NewMemoryIndex(r.Memory, r.Score))
	}
	return &SearchResult{Memories: indexes, Total: len(indexes)}, nil
}

func (s *Server) toolShow(ctx context.Context, argsRaw []byte) (*ShowResult, error) {
	var args ShowArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid show arguments: %w", err)
	}
	entry, rels, err := s.eng.Show(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	return &ShowResult{Memory: *entry, Relations: rels}, nil
}

func (s *Server) toolRelate(ctx context.Context, argsRaw []byte) (*RelateResult, error) {
	var args RelateArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid relate arguments: %w", err)
	}
	strength := args.Strength
	if strength <= 0 {
		strength = 1.0
	}
	rel, err := s.eng.Relate(ctx, args.SourceID, args.TargetID, types.RelationType(args.RelationType), strength)
	if err != nil {
		return nil, err
	}
	return &RelateResult{ID: rel.ID}, nil
}

func (s *Server) toolChain(ctx context.Context, argsRaw []byte) (*ChainResult, error) {
	var args ChainArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid chain arguments: %w", err)
	}
	bounds := storage.GraphBounds{MaxHops: args.MaxHops, MaxNodes: args.MaxNodes}
	for _, t := range args.AllowedTypes {
		bounds.AllowedTypes = append(bounds.AllowedTypes, types.RelationType(t))
	}
	result, err := s.eng.Chain(ctx, args.ID, bounds)
	if err != nil {
		return nil, err
	}

	edges := make([]ChainEdge, 0, len(result.Edges))
	for _, e := range result.Edges {
		edges = append(edges, ChainEdge{From: e.From, To: e.To, RelationType: e.RelationType, Weight: e.Weight})
	}
	return &ChainResult{Nodes: result.Nodes, Edges: edges, BoundsReached: result.BoundsReached}, nil
}

func (s *Server) toolConsolidate(ctx context.Context) (*ConsolidateResult, error) {
	results, err := s.eng.Consolidate(ctx, "consolidation")
	if err != nil {
		return nil, err
	}
	merges := make([]ConsolidateMerge, 0, len(results))
	for _, r := range results {
		merges = append(merges, ConsolidateMerge{MergedID: r.MergedID, Absorbed: r.Absorbed})
	}
	return &ConsolidateResult{Merged: merges}, nil
}

func (s *Server) toolAssess(ctx context.Context, argsRaw []byte) (*AssessResult, error) {
	var args AssessArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid assess arguments: %w", err)
	}
	result, err := s.eng.Assess(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	issues := make([]string, 0, len(result.Issues))
	for _, i := range result.Issues {
		issues = append(issues, string(i))
	}
	return &AssessResult{ID: result.MemoryID, Score: result.Score, Issues: issues}, nil
}

func (s *Server) toolHistory(ctx context.Context, argsRaw []byte) (*HistoryResult, error) {
	var args HistoryArgs
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, fmt.Errorf("invalid history arguments: %w", err)
	}
	entries, err := s.eng.History(ctx, args.MemoryID, args.Limit)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Entries: toHistoryEntries(entries)}, nil
}

// toolDescriptors lists every tool this server exposes, for tools/list.
func toolDescriptors() []MCPTool {
	return []MCPTool{
		{Name: "capture", Description: "Capture a new developer memory (observation, decision, pattern, error, fix, etc.)", InputSchema: schemaOf("title", "content")},
		{Name: "search", Description: "Search memories by natural-language query, ranked by relevance", InputSchema: schemaOf("query")},
		{Name: "show", Description: "Show a memory's full detail and its relations", InputSchema: schemaOf("id")},
		{Name: "relate", Description: "Create a typed relation between two memories", InputSchema: schemaOf("source_id", "target_id", "relation_type")},
		{Name: "chain", Description: "Traverse the relation graph outward from a memory", InputSchema: schemaOf("id")},
		{Name: "consolidate", Description: "Merge clusters of similar, aging memories into higher-quality summaries", InputSchema: schemaOf()},
		{Name: "assess", Description: "Score a memory's quality and list specific issues found", InputSchema: schemaOf("id")},
		{Name: "history", Description: "Show a memory's audit trail (created, updated, superseded, deleted, accessed)", InputSchema: schemaOf("memory_id")},
	}
}

func schemaOf(required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": required,
	}
}
