// Package tools implements the MCP tool handlers codetrace exposes in
// `-serve` mode: open_symbol, hybrid_search, and find_usages, each
// backed directly by the resolver/evidence/search engine that also
// drives the batch Executor. Grounded on the teacher's
// internal/mcp/tools/helpers.go ToolHandler/WrapHandler pattern.
package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codetrace-dev/codetrace/internal/mcp/session"
)

// ToolHandler is the interface every tool handler implements.
type ToolHandler[P any] interface {
	Handle(ctx context.Context, params P) (string, error)
}

// WrapHandler adapts a ToolHandler into the SDK's AddTool callback. Nil
// params are replaced with a zero value; handler errors are surfaced as
// an error CallToolResult rather than a transport-level failure.
func WrapHandler[P any](h ToolHandler[P]) func(context.Context, *sdkmcp.CallToolRequest, *P) (*sdkmcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, params *P) (*sdkmcp.CallToolResult, any, error) {
		if params == nil {
			params = new(P)
		}
		result, err := h.Handle(ctx, *params)
		if err != nil {
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result}},
		}, nil, nil
	}
}

// loadSession optionally loads a session by ID, returning nil (not an
// error) when the manager itself is nil or the load fails — tool calls
// work sessionless, they just lose seen-symbol dedup across calls.
func loadSession(ctx context.Context, mgr *session.Manager, sessionID string) *session.Session {
	if mgr == nil {
		return nil
	}
	sess, err := mgr.Load(ctx, sessionID)
	if err != nil {
		return nil
	}
	return sess
}

// saveSession persists sess if a manager is configured; failures are
// non-fatal since sessions are a best-effort convenience, not a
// durability guarantee.
func saveSession(ctx context.Context, mgr *session.Manager, sess *session.Session) {
	if mgr == nil || sess == nil {
		return
	}
	_ = mgr.Save(ctx, sess)
}
