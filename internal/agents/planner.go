package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

const plannerSystemPrompt = `You are the planning agent in an iterative code-comprehension investigation.
You are given a JSON summary of the current blackboard: the target symbol,
the current focus, resolved and unresolved symbols, the remaining
frontier, and a table of calls the repository index could not yet
resolve. Propose at most 10 actions (OPEN_SYMBOL, HYBRID_SEARCH, or
FIND_USAGES) that would add the most useful new evidence. Never propose
OPEN_SYMBOL for a symbol that is already resolved or that has been marked
ignored — those are dead ends. Set stop=true once you believe enough
evidence has been gathered to explain the target, and give a one-sentence
reason either way.`

// StructuredCompleter is the narrow boundary the planner needs from an
// LLM client: schema-constrained structured output. Satisfied by
// *llm.Client; tests substitute a deterministic stub, per the design
// note that the LLM client must be injected rather than reached for as
// file-scope global state.
type StructuredCompleter interface {
	ParseStructured(ctx context.Context, systemPrompt, userPrompt string, schema *jsonschema.Schema, out any) error
}

// Planner summarizes the blackboard and asks the LLM for the next batch
// of actions, then defensively re-enforces the dedup/termination
// invariants the prompt can only ask for, never guarantee.
type Planner struct {
	llm         StructuredCompleter
	schema      *jsonschema.Schema
	extraPrompt string
}

// NewPlanner builds a Planner. extraPrompt is the caller-supplied
// explanation-prompt text, appended verbatim to the system prompt so a
// custom focus ("explain this for a security reviewer") reaches the
// planner as well as the synthesizer.
func NewPlanner(llmClient StructuredCompleter, extraPrompt string) (*Planner, error) {
	schema, err := jsonschema.For[models.PlannerOutput](nil)
	if err != nil {
		return nil, fmt.Errorf("build planner output schema: %w", err)
	}
	return &Planner{llm: llmClient, schema: schema, extraPrompt: extraPrompt}, nil
}

// Plan builds the blackboard summary, calls the LLM for a PlannerOutput,
// and post-filters the result so the dedup contract holds regardless of
// what the model actually returned. hintFile is the run-level hint file,
// surfaced in the summary so the model can carry it onto the actions it
// proposes.
func (p *Planner) Plan(ctx context.Context, state *models.Blackboard, idx *models.RepositoryIndex, hintFile string) (models.PlannerOutput, error) {
	summary := buildSummary(state, idx, hintFile)
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return models.PlannerOutput{}, fmt.Errorf("marshal blackboard summary: %w", err)
	}

	system := plannerSystemPrompt
	if p.extraPrompt != "" {
		system = system + "\n\nAdditional guidance: " + p.extraPrompt
	}
	userPrompt := "Blackboard summary:\n" + string(payload)

	var out models.PlannerOutput
	if err := p.llm.ParseStructured(ctx, system, userPrompt, p.schema, &out); err != nil {
		return models.PlannerOutput{}, fmt.Errorf("planner LLM call: %w", err)
	}

	out = p.postFilter(out, state)
	return out, nil
}

// postFilter drops any OpenSymbol-shaped action whose target is already
// resolved or ignored — by exact name, by short name, or by suffix match
// against a resolved/ignored qualname — and forces stop=true with an
// explanatory note if doing so empties the action list while the model
// said to keep going. This is the primary dedup safeguard; the system
// prompt restates the rule but cannot be trusted alone.
func (p *Planner) postFilter(out models.PlannerOutput, state *models.Blackboard) models.PlannerOutput {
	dropped := 0
	filtered := out.Actions[:0]
	for _, action := range out.Actions {
		if action.Type == models.ActionOpenSymbol && p.isDeadEnd(action.SymbolRef, state) {
			dropped++
			continue
		}
		filtered = append(filtered, action)
	}
	out.Actions = filtered

	if dropped > 0 && len(out.Actions) == 0 && !out.Stop {
		out.Stop = true
		if out.Reason == "" {
			out.Reason = "all proposed actions targeted already-resolved or ignored symbols"
		} else {
			out.Reason = out.Reason + " (forced stop: no non-duplicate actions remained after filtering)"
		}
	}
	return out
}

// isDeadEnd reports whether ref names a symbol the blackboard already
// considers settled: resolved or ignored, matched by full name, by short
// name, or by either being a suffix of the other.
func (p *Planner) isDeadEnd(ref string, state *models.Blackboard) bool {
	if st, ok := state.Symbols[ref]; ok && (st.Resolved || st.IgnoreUnresolved) {
		return true
	}
	refShort := lastSegment(ref)
	for known, st := range state.Symbols {
		if !st.Resolved && !st.IgnoreUnresolved {
			continue
		}
		knownShort := lastSegment(known)
		if knownShort == refShort {
			return true
		}
		if strings.HasSuffix(known, "."+ref) || strings.HasSuffix(ref, "."+known) {
			return true
		}
	}
	return false
}
