package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codetrace-dev/codetrace/internal/forbidden"
	"github.com/codetrace-dev/codetrace/internal/llm"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

const synthesizerSystemPrompt = `You are the synthesis agent in a code-comprehension investigation. You
are given the target symbol, the current focus, every resolved piece of
evidence gathered so far (reference, kind, defining file, line span,
source snippet, and outgoing calls), and the remaining unexplored
frontier. Write a grounded Markdown explanation of what the target
symbol does and how it works, citing every symbol you reference as
[relative/path:Lstart-Lend]. Do not speculate about evidence you were
not given; if something is uncertain, say what is known and flag the gap
explicitly rather than hedging.`

// TextCompleter is the narrow boundary the synthesizer needs from an LLM
// client: free-text completion. Satisfied by *llm.Client.
type TextCompleter interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Synthesizer renders the final explanation from the resolved evidence on
// the blackboard, re-prompting once if the first draft hedges.
type Synthesizer struct {
	llm         TextCompleter
	extraPrompt string
}

func NewSynthesizer(llmClient TextCompleter, extraPrompt string) *Synthesizer {
	return &Synthesizer{llm: llmClient, extraPrompt: extraPrompt}
}

// Synthesize renders the final Markdown explanation. If the first
// response contains a forbidden hedging word, it re-invokes the model
// once with a reinforced system prompt that names the first forbidden
// word found and lists every forbidden word, and returns whatever that
// second pass produced.
func (s *Synthesizer) Synthesize(ctx context.Context, state *models.Blackboard) (string, error) {
	userPrompt := s.buildUserPrompt(state)
	system := synthesizerSystemPrompt
	if s.extraPrompt != "" {
		system = system + "\n\nAdditional guidance: " + s.extraPrompt
	}

	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: userPrompt},
	}
	text, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("synthesizer LLM call: %w", err)
	}

	word, hedges := forbidden.Contains(text)
	if !hedges {
		return text, nil
	}

	reinforced := system + fmt.Sprintf(
		"\n\nYour previous draft hedged using the word %q. Do not use any of these words: %s. State only what the evidence shows.",
		word, strings.Join(forbidden.Words, ", "))
	messages[0].Content = reinforced
	text, err = s.llm.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("synthesizer re-prompt LLM call: %w", err)
	}
	return text, nil
}

func (s *Synthesizer) buildUserPrompt(state *models.Blackboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\n", state.Target)
	fmt.Fprintf(&b, "Current focus: %s\n\n", state.CurrentFocus)

	var refs []string
	for ref, st := range state.Symbols {
		if st.Resolved {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)

	b.WriteString("Resolved evidence:\n")
	for _, ref := range refs {
		st := state.Symbols[ref]
		fmt.Fprintf(&b, "\n### %s (%s)\n", ref, st.Kind)
		fmt.Fprintf(&b, "File: %s:L%d-L%d\n", st.DefinedIn, st.Span[0], st.Span[1])
		if len(st.ExtractedCalls) > 0 {
			fmt.Fprintf(&b, "Calls: %s\n", strings.Join(st.ExtractedCalls, ", "))
		}
		b.WriteString("```\n")
		b.WriteString(st.Snippet)
		b.WriteString("\n```\n")
	}

	if len(state.Frontier) > 0 {
		fmt.Fprintf(&b, "\nRemaining frontier (unexplored): %s\n", strings.Join(state.Frontier, ", "))
	}
	return b.String()
}
