package mcp

import (
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/codetrace-dev/codetrace/internal/mcp/session"
)

// Server bundles the infrastructure every MCP tool handler needs: an
// optional Valkey-backed session manager (so `-serve` mode can remember
// which symbols this investigation has already surfaced) and a logger.
// Grounded on the teacher's internal/mcp/server.go, with Store/Nav
// dropped — codetrace has no persistent graph store to wrap.
type Server struct {
	Session *session.Manager
	Logger  *slog.Logger
}

// ServerDeps holds the dependencies needed to construct a Server.
type ServerDeps struct {
	ValkeyClient valkey.Client
	Logger       *slog.Logger
}

// NewServer creates an MCP server. ValkeyClient may be nil, in which case
// Session is nil and callers fall back to sessionless tool calls.
func NewServer(deps ServerDeps) *Server {
	var sm *session.Manager
	if deps.ValkeyClient != nil {
		sm = session.NewManager(deps.ValkeyClient)
	}
	return &Server{Session: sm, Logger: deps.Logger}
}
