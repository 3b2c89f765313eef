package agents

import (
	"github.com/codetrace-dev/codetrace/internal/blackboard"
	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/internal/search"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

const defaultTopK = 10

// Executor applies a planned action list against the index and the
// evidence builder, writing results onto the blackboard. Grounded on
// agents.py's ExecutorAgent.execute.
type Executor struct {
	idx        *models.RepositoryIndex
	resolver   *resolve.Resolver
	builder    *evidence.Builder
	repoRoot   string
	extraRoots []string
}

func NewExecutor(idx *models.RepositoryIndex, resolver *resolve.Resolver, builder *evidence.Builder, repoRoot string, extraRoots []string) *Executor {
	return &Executor{idx: idx, resolver: resolver, builder: builder, repoRoot: repoRoot, extraRoots: extraRoots}
}

// Run applies every action in order against board, maintaining an
// in-iteration "already opened" set so a misbehaved planner emitting the
// same OpenSymbol twice in one batch only pays for it once. hintFile is
// the run-level hint; an action's own hint_file takes precedence when
// set, otherwise the run-level one applies.
func (e *Executor) Run(board *blackboard.Board, actions []models.Action, hintFile string) {
	opened := map[string]bool{}
	for _, action := range actions {
		switch action.Type {
		case models.ActionOpenSymbol:
			e.openSymbol(board, action, opened, hintFile)
		case models.ActionHybridSearch:
			e.hybridSearch(board, action, hintFile)
		case models.ActionFindUsages:
			e.findUsages(board, action)
		default:
			board.Log("executor: unknown action type %q, skipped", action.Type)
		}
	}
}

func (e *Executor) openSymbol(board *blackboard.Board, action models.Action, opened map[string]bool, hintFile string) {
	hint := hintOr(action.HintFile, hintFile)
	ref := action.SymbolRef
	if opened[ref] {
		board.Log("executor: skip duplicate OpenSymbol for %s (already attempted this iteration)", ref)
		return
	}
	opened[ref] = true

	if st, ok := board.State.Symbols[ref]; ok && st.Resolved {
		board.Log("executor: skip duplicate OpenSymbol for %s (already resolved)", ref)
		return
	}
	if res := e.resolver.Resolve(ref, hint); res.Resolved {
		if st, ok := board.State.Symbols[res.Def.QualifiedName]; ok && st.Resolved {
			board.Log("executor: skip duplicate OpenSymbol for %s (already resolved as %s)", ref, res.Def.QualifiedName)
			return
		}
	}

	ev, err := e.builder.OpenSymbol(ref, hint)
	if err != nil {
		board.MarkUnresolved(ref, err.Error())
		board.Log("executor: OpenSymbol(%s) failed: %v", ref, err)
		return
	}

	board.AddEvidence(ev)
	board.Log("executor: OpenSymbol(%s) resolved to %s (%s:%d-%d)", ref, ev.SymbolRef, ev.DefinedIn, ev.Span[0], ev.Span[1])

	// Diagnostic only: log which of this evidence's outgoing calls the
	// index could resolve right now. This does not prune the call list —
	// an unresolvable call like validate_data may still be exactly the
	// thing worth flagging in the final explanation.
	for _, call := range ev.ExtractedCalls {
		if callResolvable(call, e.idx) {
			board.Log("executor:   call %s resolves in the index", call)
		} else {
			board.Log("executor:   call %s does not resolve in the index", call)
		}
	}
}

// hybridSearch resolves query to zero or one definition, always runs a
// plain substring grep of the primary repository for it (auxiliary roots
// are not searched), and, if a definition was found, auto-opens it. A miss is recorded via the normal two-strike
// mark_unresolved path, keyed by the query itself — matching
// agents.py's ExecutorAgent, which never stores grep hits for
// HYBRID_SEARCH on the blackboard, only logs their count.
func (e *Executor) hybridSearch(board *blackboard.Board, action models.Action, hintFile string) {
	hint := hintOr(action.HintFile, hintFile)
	topK := action.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	res := e.resolver.Resolve(action.Query, hint)
	usageCap := max(10, topK*4)
	hits, err := search.FindUsages(e.repoRoot, action.Query, usageCap)
	if err != nil {
		board.Log("executor: HybridSearch(%s) grep failed: %v", action.Query, err)
	}

	if !res.Resolved {
		board.MarkUnresolved(action.Query, "HYBRID_SEARCH found no defs")
		board.Log("executor: HybridSearch(%s) found no resolvable definition, %d grep hits", action.Query, len(hits))
		return
	}

	ev, err := e.builder.OpenSymbol(res.Def.QualifiedName, hint)
	if err != nil {
		board.Log("executor: HybridSearch(%s) top hit %s failed to open: %v", action.Query, res.Def.QualifiedName, err)
		return
	}
	board.AddEvidence(ev)
	board.Log("executor: HybridSearch(%s) auto-opened top hit %s (%d grep hits)", action.Query, ev.SymbolRef, len(hits))
}

// findUsages greps for the literal needle and attaches the hit list
// directly onto the needle's own SymbolState, matching
// bb["symbols"][needle]["usages"] = hits in agents.py — it does not
// prefix or otherwise transform the key.
func (e *Executor) findUsages(board *blackboard.Board, action models.Action) {
	topK := action.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	roots := append([]string{e.repoRoot}, e.extraRoots...)

	var allHits []search.Hit
	for _, root := range roots {
		hits, err := search.FindUsages(root, action.Needle, topK-len(allHits))
		if err != nil {
			board.Log("executor: FindUsages(%s) in %s failed: %v", action.Needle, root, err)
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

	st := board.State.Symbols[action.Needle]
	st.Hits = toModelHits(allHits)
	board.State.Symbols[action.Needle] = st
	board.Log("executor: FindUsages(%s) found %d hits", action.Needle, len(allHits))
}

// hintOr mirrors `act.hint_file or hint_file`: the action's own hint
// wins, the run-level hint fills the gap.
func hintOr(actionHint, runHint string) string {
	if actionHint != "" {
		return actionHint
	}
	return runHint
}

func toModelHits(hits []search.Hit) []models.SearchHit {
	out := make([]models.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = models.SearchHit{File: h.File, Line: h.Line, Text: h.Text}
	}
	return out
}
