package blackboard

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

func evidenceFor(ref string, calls ...string) *models.Evidence {
	return &models.Evidence{
		SymbolRef:      ref,
		Kind:           "function",
		DefinedIn:      "core/pipeline.py",
		Span:           [2]int{10, 20},
		Snippet:        "def f():\n    pass",
		ExtractedCalls: calls,
		Source:         "main_repo",
	}
}

func TestAddEvidence_FrontierGetsNewCallsOnly(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.AddEvidence(evidenceFor("core.pipeline.process",
		"_initialize_state", "_run_phase", "len", "sorted", "self.close", "_run_phase"))

	want := []string{"_initialize_state", "_run_phase"}
	if !reflect.DeepEqual(b.State.Frontier, want) {
		t.Errorf("frontier = %v, want %v (builtins and dotted calls excluded, no duplicates)", b.State.Frontier, want)
	}
}

func TestAddEvidence_CleansFrontierOfResolvedShortNames(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.State.Frontier = []string{"helper", "other"}

	b.AddEvidence(evidenceFor("core.utils.helper"))

	for _, f := range b.State.Frontier {
		if f == "helper" {
			t.Errorf("frontier still contains the short name of a resolved symbol: %v", b.State.Frontier)
		}
	}
	if !containsStr(b.State.Frontier, "other") {
		t.Errorf("unrelated frontier entry was dropped: %v", b.State.Frontier)
	}
}

func TestAddEvidence_TrackedCallStaysOffFrontier(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.MarkUnresolved("validate_data", "not found in index")

	b.AddEvidence(evidenceFor("core.pipeline.process", "validate_data", "fresh_call"))

	if containsStr(b.State.Frontier, "validate_data") {
		t.Errorf("one-strike symbol was re-queued onto the frontier: %v", b.State.Frontier)
	}
	if !containsStr(b.State.Frontier, "fresh_call") {
		t.Errorf("untracked call should have been appended: %v", b.State.Frontier)
	}
}

func TestMarkUnresolved_TwoStrikesIgnores(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.State.Frontier = []string{"validate_data"}

	b.MarkUnresolved("validate_data", "not found in index")
	st := b.State.Symbols["validate_data"]
	if st.IgnoreUnresolved {
		t.Fatalf("first miss must not ignore the symbol")
	}
	if st.MissCount != 1 || st.Status != "unresolved" {
		t.Fatalf("first miss state = %+v", st)
	}

	b.MarkUnresolved("validate_data", "still not found")
	st = b.State.Symbols["validate_data"]
	if !st.IgnoreUnresolved {
		t.Fatalf("second miss must ignore the symbol, state = %+v", st)
	}
	if st.MissCount < 2 {
		t.Errorf("ignored symbol must have miss_count >= 2, got %d", st.MissCount)
	}
	if containsStr(b.State.Frontier, "validate_data") {
		t.Errorf("ignored symbol left on frontier: %v", b.State.Frontier)
	}
}

func TestFrontierInvariant_NoTrackedSymbols(t *testing.T) {
	b := New("/repo", "t")
	b.State.Frontier = []string{"tracked", "fresh"}
	b.State.Symbols["tracked"] = models.SymbolState{Status: "unresolved", MissCount: 1}

	b.cleanFrontier()

	want := []string{"fresh"}
	if !reflect.DeepEqual(b.State.Frontier, want) {
		t.Errorf("frontier = %v, want %v", b.State.Frontier, want)
	}
}

func TestApplyPatch_EmptyIsIdentity(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.State.Frontier = []string{"a", "b"}
	b.State.Symbols["a"] = models.SymbolState{Status: "unresolved", MissCount: 1}

	before := *b.State
	beforeFrontier := append([]string{}, b.State.Frontier...)

	b.ApplyPatch(models.BlackboardPatch{})

	if b.State.CurrentFocus != before.CurrentFocus {
		t.Errorf("empty patch moved focus to %q", b.State.CurrentFocus)
	}
	if !reflect.DeepEqual(b.State.Frontier, beforeFrontier) {
		t.Errorf("empty patch changed frontier: %v", b.State.Frontier)
	}
	if len(b.State.Symbols) != 1 {
		t.Errorf("empty patch changed symbols: %v", b.State.Symbols)
	}
}

func TestApplyPatch_MovesFocusAndDedupesFrontier(t *testing.T) {
	b := New("/repo", "core.pipeline.process")
	b.State.Frontier = []string{"existing"}

	b.ApplyPatch(models.BlackboardPatch{
		CurrentFocus: "core.utils.helper",
		AddFrontier:  []string{"existing", "brand_new"},
	})

	if b.State.CurrentFocus != "core.utils.helper" {
		t.Errorf("focus = %q", b.State.CurrentFocus)
	}
	want := []string{"existing", "brand_new"}
	if !reflect.DeepEqual(b.State.Frontier, want) {
		t.Errorf("frontier = %v, want %v", b.State.Frontier, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blackboard.json")

	b := New("/repo", "core.pipeline.process")
	b.AddEvidence(evidenceFor("core.pipeline.process", "_run_phase"))
	b.MarkUnresolved("validate_data", "not found")
	b.Log("iteration %d done", 1)
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.State, b.State) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded.State, b.State)
	}
}
