// Package resolve implements the four-strategy symbol resolver:
// exact match, class.method suffix match, import-aware hint-file
// resolution, and scored short-name fallback.
package resolve

import (
	"cmp"
	"slices"
	"strings"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

// defaultTieBreaks is consulted only when S2/S3's suffix matching
// leaves more than one candidate. It generalizes the sklearn/xgboost
// preference the original resolver hardcoded for its one sample
// repository — any project can supply its own list via WithTieBreaks.
var defaultTieBreaks = []string{"sklearn", "xgboost"}

// Result is the outcome of resolving a symbol reference.
type Result struct {
	Def      models.SymbolDefinition
	Strategy string // "S1", "S2", "S3", "S4"
	Resolved bool
}

// Resolver resolves symbol references against a RepositoryIndex.
type Resolver struct {
	idx       *models.RepositoryIndex
	tieBreaks []string
}

func New(idx *models.RepositoryIndex) *Resolver {
	return &Resolver{idx: idx, tieBreaks: defaultTieBreaks}
}

// WithTieBreaks overrides the ordered substring preference used to break
// ties in S2/S3 when multiple class.method candidates exist.
func (r *Resolver) WithTieBreaks(subs []string) *Resolver {
	r.tieBreaks = subs
	return r
}

// Resolve finds the definition for symbolRef, optionally using hintFile's
// import bindings to disambiguate.
func (r *Resolver) Resolve(symbolRef, hintFile string) Result {
	if def, ok := r.idx.Symbols[symbolRef]; ok {
		return Result{Def: def, Strategy: "S1", Resolved: true}
	}

	if res, ok := r.resolveClassMethod(symbolRef); ok {
		return res
	}

	if hintFile != "" && strings.Contains(symbolRef, ".") {
		if res, ok := r.resolveViaHintFile(symbolRef, hintFile); ok {
			return res
		}
	}

	if res, ok := r.resolveShortName(symbolRef, hintFile); ok {
		return res
	}

	return Result{}
}

// resolveClassMethod implements S2: split symbolRef into its last two
// dot-segments and look for any indexed qualname ending in ".cls.meth".
func (r *Resolver) resolveClassMethod(symbolRef string) (Result, bool) {
	parts := strings.Split(symbolRef, ".")
	if len(parts) < 2 {
		return Result{}, false
	}
	suffix := "." + strings.Join(parts[len(parts)-2:], ".")

	var candidates []string
	for qn := range r.idx.Symbols {
		if strings.HasSuffix(qn, suffix) {
			candidates = append(candidates, qn)
		}
	}
	if len(candidates) == 0 {
		return Result{}, false
	}
	qn := r.breakTie(candidates)
	return Result{Def: r.idx.Symbols[qn], Strategy: "S2", Resolved: true}, true
}

// resolveViaHintFile implements S3's nested fallback chain: a two-segment
// Class.method candidate against the hint file's import map (exact, then
// suffix, then a cls/meth-suffix scan, then a fuzzy contains-both scan),
// then a three-segment module.Class.method candidate, then a first-segment
// alias-only candidate.
func (r *Resolver) resolveViaHintFile(symbolRef, hintFile string) (Result, bool) {
	imports := r.idx.ImportMap[hintFile]
	imap := make(map[string]string, len(imports))
	for _, imp := range imports {
		imap[imp.Alias] = imp.Module
	}

	parts := strings.Split(symbolRef, ".")
	if len(parts) < 2 {
		return Result{}, false
	}

	// Two-segment: take the last two dotted segments as Class.method,
	// resolve Class via the import map, then try "<resolved module>.method".
	cls, meth := parts[len(parts)-2], parts[len(parts)-1]
	if module, ok := imap[cls]; ok {
		full := module + "." + meth
		if def, ok := r.idx.Symbols[full]; ok {
			return Result{Def: def, Strategy: "S3", Resolved: true}, true
		}

		// Suffix match against the resolved full candidate path.
		var suffixMatches []string
		for qn := range r.idx.Symbols {
			if qn == full || strings.HasSuffix(qn, "."+full) {
				suffixMatches = append(suffixMatches, qn)
			}
		}
		if len(suffixMatches) > 0 {
			qn := r.breakTieLongest(suffixMatches)
			return Result{Def: r.idx.Symbols[qn], Strategy: "S3", Resolved: true}, true
		}

		// Fallback: scan for any qualname ending in ".cls.meth". Unlike
		// S2, these scans prefer the longer qualname on a tie — a deeper
		// path is the more specific hit when the import map already named
		// the class.
		var fallbackMatches []string
		suffix := "." + cls + "." + meth
		for qn := range r.idx.Symbols {
			if strings.HasSuffix(qn, suffix) {
				fallbackMatches = append(fallbackMatches, qn)
			}
		}
		if len(fallbackMatches) > 0 {
			qn := r.breakTieLongest(fallbackMatches)
			return Result{Def: r.idx.Symbols[qn], Strategy: "S3", Resolved: true}, true
		}

		// Fuzzy: any qualname containing both cls and meth as substrings.
		var fuzzyMatches []string
		for qn := range r.idx.Symbols {
			if strings.Contains(qn, cls) && strings.Contains(qn, meth) {
				fuzzyMatches = append(fuzzyMatches, qn)
			}
		}
		if len(fuzzyMatches) > 0 {
			qn := r.breakTieLongest(fuzzyMatches)
			return Result{Def: r.idx.Symbols[qn], Strategy: "S3", Resolved: true}, true
		}
	}

	// Three-segment: all but the last segment is a single alias in the
	// import table.
	first := strings.Join(parts[:len(parts)-1], ".")
	if module, ok := imap[first]; ok {
		full := module + "." + parts[len(parts)-1]
		if def, ok := r.idx.Symbols[full]; ok {
			return Result{Def: def, Strategy: "S3", Resolved: true}, true
		}
	}

	// First-segment-only: p1 is an alias, try imports[p1].p2...pn.
	if module, ok := imap[parts[0]]; ok {
		full := module + "." + strings.Join(parts[1:], ".")
		if def, ok := r.idx.Symbols[full]; ok {
			return Result{Def: def, Strategy: "S3", Resolved: true}, true
		}
	}

	return Result{}, false
}

// resolveShortName implements S4: look the final dot-segment up in the
// short-name multimap, then score candidates when a hint file is present.
func (r *Resolver) resolveShortName(symbolRef, hintFile string) (Result, bool) {
	parts := strings.Split(symbolRef, ".")
	short := parts[len(parts)-1]
	candidates := r.idx.ShortNameMap[short]
	if len(candidates) == 0 {
		return Result{}, false
	}
	if hintFile == "" {
		return Result{Def: r.idx.Symbols[candidates[0]], Strategy: "S4", Resolved: true}, true
	}

	type scored struct {
		qn    string
		score int
		index int
	}
	imports := r.idx.ImportMap[hintFile]
	hintModule := models.ModuleNameFromPath(hintFile)

	scoredCandidates := make([]scored, len(candidates))
	for i, qn := range candidates {
		score := 0
		if r.idx.Symbols[qn].File == hintFile {
			score += 50
		}
		for _, imp := range imports {
			if strings.HasPrefix(qn, imp.Module) {
				score += 30
			}
		}
		if hintModule != "" && sharesFirstTwoSegments(qn, hintModule) {
			score += 5
		}
		scoredCandidates[i] = scored{qn: qn, score: score, index: i}
	}

	slices.SortFunc(scoredCandidates, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	best := scoredCandidates[0]
	return Result{Def: r.idx.Symbols[best.qn], Strategy: "S4", Resolved: true}, true
}

// breakTie orders ambiguous class.method candidates by the configured
// preferred-substring list, then by shortest qualname, with a lexical
// final key so the result never depends on map iteration order.
func (r *Resolver) breakTie(candidates []string) string {
	slices.SortFunc(candidates, func(a, b string) int {
		pa, pb := tieBreakRank(a, r.tieBreaks), tieBreakRank(b, r.tieBreaks)
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return candidates[0]
}

// breakTieLongest is breakTie with the length preference inverted: the
// S3 import-aware scans treat the deeper qualname as the more specific
// match.
func (r *Resolver) breakTieLongest(candidates []string) string {
	slices.SortFunc(candidates, func(a, b string) int {
		pa, pb := tieBreakRank(a, r.tieBreaks), tieBreakRank(b, r.tieBreaks)
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return candidates[0]
}

func tieBreakRank(qualname string, subs []string) int {
	lower := strings.ToLower(qualname)
	for i, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return i
		}
	}
	return len(subs)
}

// sharesFirstTwoSegments compares the first two dot-segments of a and b
// as whole slices, the way Python's `split(".")[0:2]` list equality does:
// a one-segment path never equals a two-segment prefix, even when the
// single segment matches.
func sharesFirstTwoSegments(a, b string) bool {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	if len(pa) > 2 {
		pa = pa[:2]
	}
	if len(pb) > 2 {
		pb = pb[:2]
	}
	return slices.Equal(pa, pb)
}
