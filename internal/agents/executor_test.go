package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codetrace-dev/codetrace/internal/blackboard"
	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "core/pipeline.py", "class Pipeline:\n    def run(self):\n        helper()\n")
	writeFile(t, root, "core/helpers.py", "def helper():\n    pass\n")

	idx := models.NewRepositoryIndex(root)
	idx.Symbols["core.pipeline.Pipeline.run"] = models.SymbolDefinition{
		QualifiedName: "core.pipeline.Pipeline.run", Kind: models.SymbolKindFunction,
		File: "core/pipeline.py", Line: 2, EndLine: 3,
	}
	idx.Symbols["core.helpers.helper"] = models.SymbolDefinition{
		QualifiedName: "core.helpers.helper", Kind: models.SymbolKindFunction,
		File: "core/helpers.py", Line: 1, EndLine: 2,
	}
	idx.ShortNameMap["run"] = []string{"core.pipeline.Pipeline.run"}
	idx.ShortNameMap["helper"] = []string{"core.helpers.helper"}
	idx.FileToRoot["core/pipeline.py"] = root
	idx.FileToRoot["core/helpers.py"] = root
	idx.Calls["core.pipeline.Pipeline.run"] = []string{"helper"}

	resolver := resolve.New(idx)
	builder := evidence.New(idx, resolver)
	return NewExecutor(idx, resolver, builder, root, nil), root
}

func TestExecutor_Run_OpenSymbol_Resolves(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: models.ActionOpenSymbol, SymbolRef: "core.pipeline.Pipeline.run"}}, "")

	st, ok := board.State.Symbols["core.pipeline.Pipeline.run"]
	if !ok || !st.Resolved {
		t.Fatalf("expected symbol to be resolved, got %+v", st)
	}
}

func TestExecutor_Run_OpenSymbol_Unresolvable(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: models.ActionOpenSymbol, SymbolRef: "nonexistent.Thing.method"}}, "")

	st, ok := board.State.Symbols["nonexistent.Thing.method"]
	if !ok || st.Resolved {
		t.Fatalf("expected unresolved marker, got %+v", st)
	}
}

func TestExecutor_Run_OpenSymbol_SkipsDuplicateWithinIteration(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	actions := []models.Action{
		{Type: models.ActionOpenSymbol, SymbolRef: "core.pipeline.Pipeline.run"},
		{Type: models.ActionOpenSymbol, SymbolRef: "core.pipeline.Pipeline.run"},
	}
	exec.Run(board, actions, "")

	if len(board.State.Logs) == 0 {
		t.Fatal("expected at least one log line")
	}
	found := false
	for _, l := range board.State.Logs {
		if l == "executor: skip duplicate OpenSymbol for core.pipeline.Pipeline.run (already attempted this iteration)" {
			found = true
		}
	}
	if !found {
		t.Error("expected a duplicate-skip log line for the repeated action")
	}
}

func TestExecutor_Run_OpenSymbol_FallsBackToRunHintFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "core/utils.py", "def normalize(v):\n    return v\n")
	writeFile(t, root, "processors/exporters.py", "def normalize(v):\n    return str(v)\n")

	idx := models.NewRepositoryIndex(root)
	for _, qn := range []string{"core.utils.normalize", "processors.exporters.normalize"} {
		file := "core/utils.py"
		if qn == "processors.exporters.normalize" {
			file = "processors/exporters.py"
		}
		idx.Symbols[qn] = models.SymbolDefinition{
			QualifiedName: qn, Kind: models.SymbolKindFunction,
			File: file, Line: 1, EndLine: 2,
		}
		idx.ShortNameMap["normalize"] = append(idx.ShortNameMap["normalize"], qn)
		idx.FileToRoot[file] = root
	}

	resolver := resolve.New(idx)
	builder := evidence.New(idx, resolver)
	exec := NewExecutor(idx, resolver, builder, root, nil)
	board := blackboard.New(root, "processors.exporters.normalize")

	// The action carries no hint_file of its own, so the run-level hint
	// must reach the resolver and its same-file +50 bonus must win over
	// the first short-name candidate.
	exec.Run(board, []models.Action{{Type: models.ActionOpenSymbol, SymbolRef: "normalize"}}, "processors/exporters.py")

	st, ok := board.State.Symbols["processors.exporters.normalize"]
	if !ok || !st.Resolved {
		t.Fatalf("expected the run-level hint file to steer resolution, symbols=%v", board.State.Symbols)
	}
}

func TestExecutor_Run_HybridSearch_AutoOpensTopHit(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: models.ActionHybridSearch, Query: "helper"}}, "")

	st, ok := board.State.Symbols["core.helpers.helper"]
	if !ok || !st.Resolved {
		t.Fatalf("expected HybridSearch to auto-open its resolved top hit, got %+v", st)
	}
}

func TestExecutor_Run_HybridSearch_NoDefsMarksUnresolved(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: models.ActionHybridSearch, Query: "totally_unknown_symbol"}}, "")

	st, ok := board.State.Symbols["totally_unknown_symbol"]
	if !ok || st.Resolved || st.MissCount != 1 {
		t.Fatalf("expected a mark_unresolved entry keyed by the query itself, got %+v (present=%v)", st, ok)
	}
}

func TestExecutor_Run_FindUsages_RecordsHits(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: models.ActionFindUsages, Needle: "helper"}}, "")

	st, ok := board.State.Symbols["helper"]
	if !ok {
		t.Fatal("expected a SymbolState entry keyed directly by the needle")
	}
	if len(st.Hits) == 0 {
		t.Error("expected at least one grep hit for 'helper'")
	}
}

func TestExecutor_Run_UnknownActionType_LogsAndSkips(t *testing.T) {
	exec, root := newTestExecutor(t)
	board := blackboard.New(root, "core.pipeline.Pipeline.run")

	exec.Run(board, []models.Action{{Type: "BOGUS_ACTION"}}, "")

	if len(board.State.Logs) != 1 {
		t.Fatalf("expected exactly one log line for the unknown action, got %d", len(board.State.Logs))
	}
}
