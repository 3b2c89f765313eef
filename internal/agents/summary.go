// Package agents implements the three roles that take turns reading and
// writing the blackboard: the planner (what to look at next), the
// executor (go look at it), and the synthesizer (write up what we
// found). Grounded on agents.py's three top-level classes, restructured
// around the teacher's request-lifecycle shape in
// internal/oracle/engine.go.
package agents

import (
	"sort"
	"strings"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

const (
	maxFrontierInSummary          = 20
	maxResolvedInSummary          = 50
	maxFocusSnippetLines          = 40
	maxUnresolvedCalls            = 30
	maxUnresolvedSymbolsInSummary = 30
	maxContextsPerCall            = 3
	maxModuleGuesses              = 2
)

// builtinCalls are the bare names format_blackboard_summary excludes from
// both the focus-evidence call split and the unresolved-call table — they
// resolve to language builtins, never to a symbol the index could define.
var builtinCalls = map[string]bool{
	"len": true, "sum": true, "zip": true, "range": true, "print": true,
	"min": true, "max": true, "set": true, "list": true, "dict": true,
	"tuple": true, "all": true, "isinstance": true, "get": true,
	"str": true, "int": true, "float": true, "bool": true,
}

// skipCall reports whether a raw extracted-call name should be left out of
// the planner's resolved/unresolved call accounting entirely: a dotted call
// (alias.method or ClassName.method) names a specific object or class the
// index already resolves through the symbol table, not a bare short name
// worth surfacing as a gap, and a builtin is never a gap at all.
func skipCall(call string) bool {
	return builtinCalls[call] || strings.Contains(call, ".")
}

// callContext is one place an unresolved call name was seen, used to
// help the planner guess which symbol it might refer to.
type callContext struct {
	FromSymbol string `json:"from_symbol"`
	File       string `json:"file"`
}

// unresolvedCallEntry groups every place a given short call name turned
// up unresolved across the whole investigation so far, plus a couple of
// guessed modules derived from the contexts it appeared in.
type unresolvedCallEntry struct {
	ShortName       string        `json:"short_name"`
	Contexts        []callContext `json:"contexts"`
	PossibleModules []string      `json:"possible_modules"`
}

// focusEvidenceSummary is the current-focus symbol's head snippet plus
// its outgoing calls split by whether the index can resolve them today.
type focusEvidenceSummary struct {
	SymbolRef     string   `json:"symbol_ref"`
	Snippet       string   `json:"snippet"`
	ResolvedNow   []string `json:"resolved_now"`
	UnresolvedNow []string `json:"unresolved_now"`
}

// blackboardSummary is the compact JSON view of the blackboard the
// planner's prompt is built from. Field set ported from agents.py's
// format_blackboard_summary.
type blackboardSummary struct {
	Target             string                `json:"target"`
	CurrentFocus       string                `json:"current_focus"`
	HintFile           string                `json:"hint_file"`
	Iteration          int                   `json:"iteration"`
	FrontierTop        []string              `json:"frontier_top"`
	ResolvedCount      int                   `json:"resolved_count"`
	UnresolvedCount    int                   `json:"unresolved_count"`
	ResolvedSymbols    []string              `json:"resolved_symbols"`
	ResolvedShortNames []string              `json:"resolved_short_names"`
	UnresolvedSymbols  []string              `json:"unresolved_symbols"`
	IgnoredSymbols     []ignoredSymbolInfo   `json:"ignored_symbols"`
	FocusEvidence      *focusEvidenceSummary `json:"focus_evidence,omitempty"`
	AllUnresolvedCalls []unresolvedCallEntry `json:"all_unresolved_calls"`
}

type ignoredSymbolInfo struct {
	Ref  string `json:"ref"`
	Note string `json:"note"`
}

// buildSummary projects a Board's state into the bounded JSON shape the
// planner prompt is built around, applying every cap documented in
// SPEC_FULL.md so the prompt never grows unbounded across iterations.
// hintFile (possibly empty) rides along so the model knows which file's
// imports bias resolution.
func buildSummary(state *models.Blackboard, idx *models.RepositoryIndex, hintFile string) blackboardSummary {
	s := blackboardSummary{
		Target:       state.Target,
		CurrentFocus: state.CurrentFocus,
		HintFile:     hintFile,
		Iteration:    state.Iterations,
	}

	frontier := cleanFrontier(state)
	if len(frontier) > maxFrontierInSummary {
		frontier = frontier[:maxFrontierInSummary]
	}
	s.FrontierTop = frontier

	var resolved, unresolved []string
	var ignored []ignoredSymbolInfo
	for ref, st := range state.Symbols {
		switch {
		case st.IgnoreUnresolved:
			ignored = append(ignored, ignoredSymbolInfo{Ref: ref, Note: st.Reason})
		case st.Resolved:
			resolved = append(resolved, ref)
		default:
			unresolved = append(unresolved, ref)
		}
	}
	sort.Strings(resolved)
	sort.Strings(unresolved)
	sort.Slice(ignored, func(i, j int) bool { return ignored[i].Ref < ignored[j].Ref })

	s.ResolvedCount = len(resolved)
	s.UnresolvedCount = len(unresolved)

	if len(resolved) > maxResolvedInSummary {
		resolved = resolved[:maxResolvedInSummary]
	}
	s.ResolvedSymbols = resolved
	s.ResolvedShortNames = shortNames(resolved)
	if len(unresolved) > maxUnresolvedSymbolsInSummary {
		unresolved = unresolved[:maxUnresolvedSymbolsInSummary]
	}
	s.UnresolvedSymbols = unresolved
	s.IgnoredSymbols = ignored

	if focus, ok := state.Symbols[state.CurrentFocus]; ok && focus.Resolved {
		s.FocusEvidence = buildFocusEvidence(state.CurrentFocus, focus, state, idx)
	}

	s.AllUnresolvedCalls = buildUnresolvedCallTable(state, idx)
	return s
}

// cleanFrontier removes any short name already resolved, already ignored,
// or already present as a full symbol key — the same invariant
// Board.cleanFrontier maintains, re-applied defensively here since
// the blackboard's frontier slice is otherwise untouched between calls.
func cleanFrontier(state *models.Blackboard) []string {
	resolvedShort := map[string]bool{}
	ignoredNames := map[string]bool{}
	for ref, st := range state.Symbols {
		if st.Resolved {
			resolvedShort[lastSegment(ref)] = true
		}
		if st.IgnoreUnresolved {
			ignoredNames[ref] = true
			ignoredNames[lastSegment(ref)] = true
		}
	}

	var cleaned []string
	for _, f := range state.Frontier {
		if resolvedShort[f] || ignoredNames[f] {
			continue
		}
		if _, known := state.Symbols[f]; known {
			continue
		}
		cleaned = append(cleaned, f)
	}
	return cleaned
}

func buildFocusEvidence(ref string, focus models.SymbolState, state *models.Blackboard, idx *models.RepositoryIndex) *focusEvidenceSummary {
	snippet := headLines(focus.Snippet, maxFocusSnippetLines)
	var resolvedNow, unresolvedNow []string
	for _, call := range focus.ExtractedCalls {
		if skipCall(call) {
			continue
		}
		if callResolvable(call, idx) {
			resolvedNow = append(resolvedNow, call)
		} else {
			unresolvedNow = append(unresolvedNow, call)
		}
	}
	return &focusEvidenceSummary{
		SymbolRef:     ref,
		Snippet:       snippet,
		ResolvedNow:   resolvedNow,
		UnresolvedNow: unresolvedNow,
	}
}

// callResolvable reports whether the index could resolve call by exact
// match or short-name lookup — a cheap, purely diagnostic check used only
// to annotate the planner's summary, not to filter the frontier.
func callResolvable(call string, idx *models.RepositoryIndex) bool {
	if idx == nil {
		return false
	}
	if _, ok := idx.Symbols[call]; ok {
		return true
	}
	short := lastSegment(call)
	return len(idx.ShortNameMap[short]) > 0
}

// buildUnresolvedCallTable groups every extracted call across every
// resolved symbol by short name, keeping up to maxContextsPerCall source
// contexts and guessing up to maxModuleGuesses possible modules per call
// by treating each context file's path as a dotted module.
func buildUnresolvedCallTable(state *models.Blackboard, idx *models.RepositoryIndex) []unresolvedCallEntry {
	byShort := map[string][]callContext{}
	var order []string

	for ref, st := range state.Symbols {
		if !st.Resolved {
			continue
		}
		for _, call := range st.ExtractedCalls {
			if skipCall(call) || callResolvable(call, idx) {
				continue
			}
			short := lastSegment(call)
			if _, seen := byShort[short]; !seen {
				order = append(order, short)
			}
			if len(byShort[short]) < maxContextsPerCall {
				byShort[short] = append(byShort[short], callContext{FromSymbol: ref, File: st.DefinedIn})
			}
		}
	}

	sort.Strings(order)
	var out []unresolvedCallEntry
	for _, short := range order {
		if len(out) >= maxUnresolvedCalls {
			break
		}
		contexts := byShort[short]
		out = append(out, unresolvedCallEntry{
			ShortName:       short,
			Contexts:        contexts,
			PossibleModules: guessModules(contexts, short),
		})
	}
	return out
}

// guessModules turns each context's file path into a dotted module guess
// (stripping the .py suffix and slashes), the same heuristic
// _all_unresolved_calls uses to hint the planner toward a hint_file.
func guessModules(contexts []callContext, short string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range contexts {
		mod := strings.TrimSuffix(c.File, ".py")
		mod = strings.ReplaceAll(mod, "/", ".")
		guess := mod + "." + short
		if seen[guess] {
			continue
		}
		seen[guess] = true
		out = append(out, guess)
		if len(out) >= maxModuleGuesses {
			break
		}
	}
	return out
}

func shortNames(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := map[string]bool{}
	for _, ref := range refs {
		s := lastSegment(ref)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func headLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
