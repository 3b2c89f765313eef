package agents

import (
	"strconv"
	"testing"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

func TestBuildSummary_SkipsBuiltinAndDottedCalls(t *testing.T) {
	idx := models.NewRepositoryIndex("/repo")
	state := &models.Blackboard{
		Target:       "core.pipeline.Pipeline.run",
		CurrentFocus: "core.pipeline.Pipeline.run",
		Symbols: map[string]models.SymbolState{
			"core.pipeline.Pipeline.run": {
				Resolved:       true,
				DefinedIn:      "core/pipeline.py",
				Snippet:        "def run():\n    pass",
				ExtractedCalls: []string{"len", "self.validate", "load_config"},
			},
		},
	}

	s := buildSummary(state, idx, "")
	if s.FocusEvidence == nil {
		t.Fatal("expected focus evidence to be built")
	}
	for _, c := range append(s.FocusEvidence.ResolvedNow, s.FocusEvidence.UnresolvedNow...) {
		if c == "len" || c == "self.validate" {
			t.Errorf("builtin/dotted call %q should have been filtered out, got %+v", c, s.FocusEvidence)
		}
	}
	found := false
	for _, c := range s.FocusEvidence.UnresolvedNow {
		if c == "load_config" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bare unresolved call load_config to survive, got %+v", s.FocusEvidence.UnresolvedNow)
	}

	for _, entry := range s.AllUnresolvedCalls {
		if entry.ShortName == "len" || entry.ShortName == "validate" {
			t.Errorf("all_unresolved_calls should not surface builtin/dotted-derived entries, got %+v", s.AllUnresolvedCalls)
		}
	}
}

func TestBuildSummary_CountsReflectUntruncatedTotals(t *testing.T) {
	idx := models.NewRepositoryIndex("/repo")
	state := &models.Blackboard{
		Symbols: map[string]models.SymbolState{},
	}
	for i := 0; i < 60; i++ {
		ref := "r" + strconv.Itoa(i) + "_resolved"
		state.Symbols[ref] = models.SymbolState{Resolved: true}
	}
	for i := 0; i < 40; i++ {
		ref := "u" + strconv.Itoa(i) + "_unresolved"
		state.Symbols[ref] = models.SymbolState{Resolved: false}
	}

	s := buildSummary(state, idx, "")
	if s.ResolvedCount != 60 {
		t.Errorf("ResolvedCount should reflect the untruncated total, got %d", s.ResolvedCount)
	}
	if len(s.ResolvedSymbols) > maxResolvedInSummary {
		t.Errorf("ResolvedSymbols should be capped at %d, got %d", maxResolvedInSummary, len(s.ResolvedSymbols))
	}
	if len(s.UnresolvedSymbols) > maxUnresolvedSymbolsInSummary {
		t.Errorf("UnresolvedSymbols should be capped at %d, got %d", maxUnresolvedSymbolsInSummary, len(s.UnresolvedSymbols))
	}
}
