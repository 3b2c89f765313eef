package models

// SymbolState tracks what codetrace currently knows about one symbol
// reference as the investigation progresses.
type SymbolState struct {
	Resolved       bool     `json:"resolved"`
	Kind           string   `json:"kind,omitempty"`
	DefinedIn      string   `json:"defined_in,omitempty"`
	Span           [2]int   `json:"span,omitempty"`
	Snippet        string   `json:"snippet,omitempty"`
	ExtractedCalls []string `json:"extracted_calls,omitempty"`
	Status         string   `json:"status,omitempty"` // "unresolved" after the first miss
	Reason         string   `json:"reason,omitempty"`
	IgnoreUnresolved bool   `json:"ignore_unresolved,omitempty"`
	MissCount      int      `json:"miss_count,omitempty"`
	Hits           []SearchHit `json:"hits,omitempty"`
}

// SearchHit is one grep match. The Executor attaches FindUsages hits to a
// synthetic SymbolState keyed by the needle rather than a resolved
// qualname; HybridSearch grep hits are only counted in the log.
type SearchHit struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// BlackboardPatch is the shape a Planner may hand back to mutate shared
// state directly, outside the normal AddEvidence/MarkUnresolved path.
type BlackboardPatch struct {
	CurrentFocus   string   `json:"current_focus,omitempty"`
	AddFrontier    []string `json:"add_frontier,omitempty"`
	MarkUnresolved []string `json:"mark_unresolved,omitempty"`
}

// Blackboard is the shared mutable state every agent reads from and
// writes to across the investigation loop. It is persisted to disk after
// every iteration so a run can be inspected after a crash.
type Blackboard struct {
	RunID        string                 `json:"run_id"`
	RepoRoot     string                 `json:"repo_root"`
	Target       string                 `json:"target"`
	CurrentFocus string                 `json:"current_focus"`
	Symbols      map[string]SymbolState `json:"symbols"`
	Frontier     []string               `json:"frontier"`
	Iterations   int                    `json:"iterations"`
	Logs         []string               `json:"logs"`
}
