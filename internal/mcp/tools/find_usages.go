package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codetrace-dev/codetrace/internal/mcp"
	"github.com/codetrace-dev/codetrace/internal/mcp/session"
	"github.com/codetrace-dev/codetrace/internal/search"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

const defaultFindUsagesTopK = 10

// FindUsagesParams are the parameters for the find_usages MCP tool.
type FindUsagesParams struct {
	SymbolRef string   `json:"symbol_ref"`
	ExtraRoots []string `json:"extra_roots,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	MaxTokens int      `json:"max_response_tokens,omitempty"`
}

// FindUsagesHandler implements the find_usages MCP tool: a literal
// regex-free grep for params.SymbolRef across the primary repository and
// any configured auxiliary roots, exactly the search.FindUsages path the
// batch Executor uses for its FindUsages action.
type FindUsagesHandler struct {
	repoRoot   string
	extraRoots []string
	sess       *session.Manager
	logger     *slog.Logger
}

func NewFindUsagesHandler(repoRoot string, extraRoots []string, sess *session.Manager, logger *slog.Logger) *FindUsagesHandler {
	return &FindUsagesHandler{repoRoot: repoRoot, extraRoots: extraRoots, sess: sess, logger: logger}
}

// Handle greps for params.SymbolRef across every configured root,
// stopping once topK hits accumulate.
func (h *FindUsagesHandler) Handle(ctx context.Context, params FindUsagesParams) (string, error) {
	if params.SymbolRef == "" {
		return "", fmt.Errorf("symbol_ref is required")
	}
	topK := params.TopK
	if topK <= 0 {
		topK = defaultFindUsagesTopK
	}

	s := loadSession(ctx, h.sess, params.SessionID)

	roots := append([]string{h.repoRoot}, h.extraRoots...)
	roots = append(roots, params.ExtraRoots...)

	var allHits []search.Hit
	for _, root := range roots {
		hits, err := search.FindUsages(root, params.SymbolRef, topK-len(allHits))
		if err != nil {
			continue
		}
		allHits = append(allHits, hits...)
		if len(allHits) >= topK {
			break
		}
	}
	if len(allHits) > topK {
		allHits = allHits[:topK]
	}

	rb := mcp.NewResponseBuilder(params.MaxTokens)
	rb.AddHeader(fmt.Sprintf("**Usages of %s** (%d hits)", params.SymbolRef, len(allHits)))
	for _, hit := range allHits {
		if !rb.AddSearchHit(models.SearchHit{File: hit.File, Line: hit.Line, Text: hit.Text}) {
			break
		}
	}

	if s != nil {
		s.AddQuery("find_usages:" + params.SymbolRef)
		saveSession(ctx, h.sess, s)
	}

	return rb.Finalize(len(allHits), rb.ItemCount()), nil
}
