// Package mcp implements the Model Context Protocol (MCP) server for Memento.
// It provides JSON-RPC 2.0 based tools for capturing, searching, and
// relating developer memories.
package mcp

import (
	"encoding/json"
	"strings"

	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/pkg/types"
)

// CaptureArgs contains arguments for the capture tool.
type CaptureArgs struct {
	Title      string   `json:"title"`                // Memory title (required)
	Content    string   `json:"content"`               // Memory content (required)
	Kind       string   `json:"kind,omitempty"`        // observation, decision, pattern, error, fix, preference, fact, lesson, todo, procedure
	Tags       []string `json:"tags,omitempty"`        // User-defined tags
	Importance float64  `json:"importance,omitempty"`  // 0.0-1.0, default 0.5
	Scope      string   `json:"scope,omitempty"`       // global, project, session
	ScopeID    string   `json:"scope_id,omitempty"`    // session ID, when scope == session
	ProjectID  string   `json:"project_id,omitempty"`  // project this memory belongs to
	Privacy    string   `json:"privacy,omitempty"`     // public, team, private
	RelatedTo  []string `json:"related_to,omitempty"`  // memory IDs to explicitly relate to
	CreatedBy  string   `json:"created_by,omitempty"`  // name of the agent or developer capturing this memory
}

// UnmarshalJSON accepts "tags"/"related_to" as either a JSON array or, for
// MCP clients that double-encode array fields, a JSON string containing an
// array or a comma-separated list.
func (a *CaptureArgs) UnmarshalJSON(data []byte) error {
	type Alias CaptureArgs
	aux := &struct {
		Tags      json.RawMessage `json:"tags,omitempty"`
		RelatedTo json.RawMessage `json:"related_to,omitempty"`
		*Alias
	}{Alias: (*Alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	a.Tags = decodeStringArray(aux.Tags)
	a.RelatedTo = decodeStringArray(aux.RelatedTo)
	return nil
}

// decodeStringArray accepts a JSON array, a JSON-encoded-string array, or a
// comma-separated string, returning nil for an absent or unrecognised field.
func decodeStringArray(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		_ = json.Unmarshal([]byte(s), &arr)
		return arr
	}
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CaptureResult contains the result of a capture call.
type CaptureResult struct {
	ID         string `json:"id"`                   // Memory ID (new, merged, or matched)
	Decision   string `json:"decision"`              // create, supersede, contradict, update, or skip
	Duplicate  bool   `json:"duplicate,omitempty"`   // true when Decision is skip or update
	ExistingID string `json:"existing_id,omitempty"` // set when Decision is skip or update
	Message    string `json:"message"`
}

// SearchArgs contains arguments for the search tool.
type SearchArgs struct {
	Query     string   `json:"query"`                // Natural-language search query (required)
	Kind      string   `json:"kind,omitempty"`       // Filter to a single memory kind
	ProjectID string   `json:"project_id,omitempty"` // Scope search to a project
	Tags      []string `json:"tags,omitempty"`       // Filter to memories carrying at least one of these tags
	Limit     int      `json:"limit,omitempty"`      // Max results (default 10, max 100)
}

// SearchResult contains ranked search results.
type SearchResult struct {
	Memories []types.MemoryIndex `json:"memories"`
	Total    int                 `json:"total"`
}

// ShowArgs contains arguments for the show tool.
type ShowArgs struct {
	ID string `json:"id"` // Memory ID (required)
}

// ShowResult contains the full detail view of a memory.
type ShowResult struct {
	Memory    types.TimelineEntry    `json:"memory"`
	Relations []*types.MemoryRelation `json:"relations"`
}

// RelateArgs contains arguments for the relate tool.
type RelateArgs struct {
	SourceID     string  `json:"source_id"`           // Required
	TargetID     string  `json:"target_id"`           // Required
	RelationType string  `json:"relation_type"`       // caused_by, fixes, supersedes, related, contradicts
	Strength     float64 `json:"strength,omitempty"`  // 0.0-1.0, default 1.0
}

// RelateResult contains the result of creating a relation.
type RelateResult struct {
	ID string `json:"id"` // Relation ID
}

// ChainArgs contains arguments for the chain (graph traversal) tool.
type ChainArgs struct {
	ID           string   `json:"id"`                      // Starting memory ID (required)
	MaxHops      int      `json:"max_hops,omitempty"`      // default 3, capped at 10
	MaxNodes     int      `json:"max_nodes,omitempty"`     // default 100, capped at 1000
	AllowedTypes []string `json:"allowed_types,omitempty"` // relation types to follow; empty means all
}

// ChainEdge mirrors storage.GraphEdge for the wire format.
type ChainEdge struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	RelationType string  `json:"relation_type"`
	Weight       float64 `json:"weight"`
}

// ChainResult contains the result of a graph traversal.
type ChainResult struct {
	Nodes         []string    `json:"nodes"`
	Edges         []ChainEdge `json:"edges"`
	BoundsReached []string    `json:"bounds_reached,omitempty"`
}

// ConsolidateArgs contains arguments for the consolidate tool. It takes no
// required fields: consolidation scans every active memory for clusters
// eligible by age and similarity.
type ConsolidateArgs struct{}

// ConsolidateMerge describes one cluster merged by a consolidation pass.
type ConsolidateMerge struct {
	MergedID string   `json:"merged_id"`
	Absorbed []string `json:"absorbed"`
}

// ConsolidateResult contains the result of a consolidation pass.
type ConsolidateResult struct {
	Merged []ConsolidateMerge `json:"merged"`
}

// AssessArgs contains arguments for the assess tool.
type AssessArgs struct {
	ID string `json:"id"` // Memory ID (required)
}

// AssessResult contains a memory's quality assessment.
type AssessResult struct {
	ID     string   `json:"id"`
	Score  int      `json:"score"` // 0-100
	Issues []string `json:"issues,omitempty"`
}

// HistoryArgs contains arguments for the history tool.
type HistoryArgs struct {
	MemoryID string `json:"memory_id"`        // Required
	Limit    int    `json:"limit,omitempty"`  // 0 means no limit
}

// HistoryEntry mirrors history.Entry for the wire format.
type HistoryEntry struct {
	MemoryID string `json:"memory_id"`
	Event    string `json:"event"`
	Actor    string `json:"actor"`
	Time     string `json:"time"` // RFC-3339
	Detail   string `json:"detail,omitempty"`
}

// HistoryResult contains a memory's audit trail, most recent first.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
}

// toHistoryEntries converts history.Entry records to their wire form.
func toHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			MemoryID: e.MemoryID,
			Event:    string(e.Event),
			Actor:    e.Actor,
			Time:     e.Time.Format("2006-01-02T15:04:05Z07:00"),
			Detail:   e.Detail,
		})
	}
	return out
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
