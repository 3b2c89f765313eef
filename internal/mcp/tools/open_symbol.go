package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/mcp"
	"github.com/codetrace-dev/codetrace/internal/mcp/session"
)

// OpenSymbolParams are the parameters for the open_symbol MCP tool.
type OpenSymbolParams struct {
	SymbolRef   string `json:"symbol_ref"`
	HintFile    string `json:"hint_file,omitempty"`
	Verbosity   string `json:"verbosity,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	MaxTokens   int    `json:"max_response_tokens,omitempty"`
}

// OpenSymbolHandler implements the open_symbol MCP tool: resolve a
// qualified symbol reference and return its definition as Evidence,
// exactly the same resolution path the batch Executor drives.
type OpenSymbolHandler struct {
	builder *evidence.Builder
	sess    *session.Manager
	logger  *slog.Logger
}

func NewOpenSymbolHandler(builder *evidence.Builder, sess *session.Manager, logger *slog.Logger) *OpenSymbolHandler {
	return &OpenSymbolHandler{builder: builder, sess: sess, logger: logger}
}

// Handle resolves params.SymbolRef and renders it as a token-budgeted
// Markdown symbol card. If a session is active and the symbol was
// already surfaced, a one-line stub is returned instead of the full card.
func (h *OpenSymbolHandler) Handle(ctx context.Context, params OpenSymbolParams) (string, error) {
	if params.SymbolRef == "" {
		return "", fmt.Errorf("symbol_ref is required")
	}

	s := loadSession(ctx, h.sess, params.SessionID)

	ev, err := h.builder.OpenSymbol(params.SymbolRef, params.HintFile)
	if err != nil {
		return "", fmt.Errorf("open_symbol(%s): %w", params.SymbolRef, err)
	}

	rb := mcp.NewResponseBuilder(params.MaxTokens)
	verbosity := mcp.ParseVerbosity(params.Verbosity)

	if s != nil && s.IsSeen(ev.SymbolRef) {
		rb.AddSymbolStub(*ev)
	} else {
		rb.AddSymbolCard(*ev, verbosity, s)
	}

	if s != nil {
		s.MarkSeen(ev.SymbolRef)
		s.AddQuery("open_symbol:" + params.SymbolRef)
		s.UpdateFocus(ev.SymbolRef)
		saveSession(ctx, h.sess, s)
	}

	return rb.Finalize(1, 1), nil
}
