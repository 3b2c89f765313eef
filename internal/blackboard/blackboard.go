// Package blackboard implements the shared mutable investigation state
// every agent reads from and writes to, matching blackboard.py's
// operations restructured around a load/mutate/save session shape.
package blackboard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

// builtins is the fixed exclusion set bb_add_evidence applies before
// pushing an extracted call onto the frontier: calls into these names
// are never worth opening.
var builtins = map[string]bool{
	"len": true, "sum": true, "zip": true, "range": true, "print": true,
	"min": true, "max": true, "set": true, "list": true, "dict": true,
	"tuple": true, "all": true, "isinstance": true, "get": true, "str": true,
	"int": true, "float": true, "bool": true, "type": true, "hasattr": true,
	"getattr": true, "enumerate": true, "iter": true, "next": true,
	"sorted": true, "reversed": true, "any": true, "abs": true, "round": true,
	"join": true,
}

// Board wraps a models.Blackboard with the mutating operations the
// orchestrator and agents call each iteration.
type Board struct {
	State *models.Blackboard
}

// New creates a fresh Board seeded with a run ID and the investigation's
// starting target.
func New(repoRoot, target string) *Board {
	return &Board{State: &models.Blackboard{
		RunID:        uuid.NewString(),
		RepoRoot:     repoRoot,
		Target:       target,
		CurrentFocus: target,
		Symbols:      make(map[string]models.SymbolState),
		Frontier:     []string{},
	}}
}

// Load reads a previously saved blackboard.json.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state models.Blackboard
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse blackboard: %w", err)
	}
	return &Board{State: &state}, nil
}

// Save persists the blackboard to path as indented JSON.
func (b *Board) Save(path string) error {
	data, err := json.MarshalIndent(b.State, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal blackboard: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Log appends a formatted line to the in-memory log, distinct from the
// on-disk run log.
func (b *Board) Log(format string, args ...any) {
	b.State.Logs = append(b.State.Logs, fmt.Sprintf(format, args...))
}

// AddEvidence marks ev's symbol resolved (keyed by its resolved, fully
// qualified name — invariant: every resolved key in Symbols is a key of
// the repository index), then rebuilds the frontier: any entry that is
// now the short name of a resolved or ignored symbol, or is already keyed
// in Symbols, is dropped. Finally every new, not-yet-seen extracted call
// is appended to the frontier tail — except builtins, calls already
// known, and dotted calls (those are resolved later via the
// class/method matching strategies, not pushed raw).
func (b *Board) AddEvidence(ev *models.Evidence) {
	b.State.Symbols[ev.SymbolRef] = models.SymbolState{
		Resolved:       true,
		Kind:           ev.Kind,
		DefinedIn:      ev.DefinedIn,
		Span:           ev.Span,
		Snippet:        ev.Snippet,
		ExtractedCalls: ev.ExtractedCalls,
	}
	b.cleanFrontier()

	for _, call := range ev.ExtractedCalls {
		if builtins[call] {
			continue
		}
		if strings.Contains(call, ".") {
			continue
		}
		// Any tracked key stays off the frontier, not just resolved or
		// ignored ones — a symbol with one strike against it is already
		// in Symbols and must not be re-queued by a later evidence add.
		if _, tracked := b.State.Symbols[call]; tracked {
			continue
		}
		if !containsStr(b.State.Frontier, call) {
			b.State.Frontier = append(b.State.Frontier, call)
		}
	}
}

// MarkUnresolved implements the two-strike rule: the first miss on a
// symbol records it as unresolved with a reason; the second miss on the
// same ref sets ignore_unresolved so the Planner stops retrying what
// looks like a builtin or external symbol the repository cannot resolve.
func (b *Board) MarkUnresolved(symbolRef, reason string) {
	state := b.State.Symbols[symbolRef]
	state.MissCount++
	state.Status = "unresolved"
	state.Reason = reason
	if state.MissCount >= 2 {
		state.IgnoreUnresolved = true
		state.Reason = "looks like a builtin or external symbol this repository cannot resolve"
	}
	b.State.Symbols[symbolRef] = state
	b.cleanFrontier()
}

// cleanFrontier drops any entry f for which a resolved symbol's short
// name equals f, an ignored symbol's short or full name equals f, or f is
// itself already a key in Symbols — maintaining the frontier invariant
// after every mutation to Symbols.
func (b *Board) cleanFrontier() {
	var resolvedShorts, ignoredNames []string
	for ref, st := range b.State.Symbols {
		if st.Resolved {
			resolvedShorts = append(resolvedShorts, shortName(ref))
		}
		if st.IgnoreUnresolved {
			ignoredNames = append(ignoredNames, ref, shortName(ref))
		}
	}

	out := b.State.Frontier[:0]
	for _, f := range b.State.Frontier {
		if _, known := b.State.Symbols[f]; known {
			continue
		}
		if containsStr(resolvedShorts, f) {
			continue
		}
		if containsStr(ignoredNames, f) {
			continue
		}
		out = append(out, f)
	}
	b.State.Frontier = out
}

func shortName(qualname string) string {
	if i := strings.LastIndex(qualname, "."); i >= 0 {
		return qualname[i+1:]
	}
	return qualname
}

// ApplyPatch merges a Planner-supplied BlackboardPatch: sets the current
// focus if given, appends any frontier entries that are neither already
// keys in Symbols nor already queued, and marks any listed refs unresolved.
func (b *Board) ApplyPatch(patch models.BlackboardPatch) {
	if patch.CurrentFocus != "" {
		b.State.CurrentFocus = patch.CurrentFocus
	}
	for _, ref := range patch.AddFrontier {
		if _, known := b.State.Symbols[ref]; known {
			continue
		}
		if !containsStr(b.State.Frontier, ref) {
			b.State.Frontier = append(b.State.Frontier, ref)
		}
	}
	for _, ref := range patch.MarkUnresolved {
		b.MarkUnresolved(ref, "marked unresolved by planner patch")
	}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
