package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/mcp"
	"github.com/codetrace-dev/codetrace/internal/mcp/session"
	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/internal/search"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

const defaultHybridSearchTopK = 10

// HybridSearchParams are the parameters for the hybrid_search MCP tool.
type HybridSearchParams struct {
	Query       string `json:"query"`
	HintFile    string `json:"hint_file,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	MaxTokens   int    `json:"max_response_tokens,omitempty"`
}

// HybridSearchHandler implements the hybrid_search MCP tool: indexed
// qualname matching combined with a plain-text repository grep via
// search.HybridSearch. The batch Executor's HybridSearch action does not
// go through this path: it resolves the query and greps with
// search.FindUsages.
type HybridSearchHandler struct {
	idx      *models.RepositoryIndex
	resolver *resolve.Resolver
	builder  *evidence.Builder
	repoRoot string
	sess     *session.Manager
	logger   *slog.Logger
}

func NewHybridSearchHandler(idx *models.RepositoryIndex, resolver *resolve.Resolver, builder *evidence.Builder, repoRoot string, sess *session.Manager, logger *slog.Logger) *HybridSearchHandler {
	return &HybridSearchHandler{idx: idx, resolver: resolver, builder: builder, repoRoot: repoRoot, sess: sess, logger: logger}
}

// Handle runs a hybrid search for params.Query. If the resolver can
// resolve a definition for the query outright, its evidence card leads
// the response; every grep hit is listed below it.
func (h *HybridSearchHandler) Handle(ctx context.Context, params HybridSearchParams) (string, error) {
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	topK := params.TopK
	if topK <= 0 {
		topK = defaultHybridSearchTopK
	}

	s := loadSession(ctx, h.sess, params.SessionID)

	hits, err := search.HybridSearch(h.idx, h.repoRoot, params.Query, topK)
	if err != nil {
		return "", fmt.Errorf("hybrid_search(%s): %w", params.Query, err)
	}

	rb := mcp.NewResponseBuilder(params.MaxTokens)
	rb.AddHeader(fmt.Sprintf("**Hybrid search: %q** (%d hits)", params.Query, len(hits)))

	res := h.resolver.Resolve(params.Query, params.HintFile)
	if res.Resolved {
		ev, err := h.builder.OpenSymbol(res.Def.QualifiedName, params.HintFile)
		if err == nil {
			rb.AddSymbolCard(*ev, mcp.VerbosityStandard, s)
			if s != nil {
				s.MarkSeen(ev.SymbolRef)
			}
		}
	}

	for _, hit := range hits {
		if !rb.AddSearchHit(models.SearchHit{File: hit.File, Line: hit.Line, Text: hit.Text}) {
			break
		}
	}

	if s != nil {
		s.AddQuery("hybrid_search:" + params.Query)
		saveSession(ctx, h.sess, s)
	}

	return rb.Finalize(len(hits), rb.ItemCount()), nil
}
