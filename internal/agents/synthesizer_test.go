package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/codetrace-dev/codetrace/internal/llm"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

// stubTextCompleter is a deterministic TextCompleter returning a scripted
// sequence of responses, one per call, so synthesizer tests never reach a
// real LLM endpoint.
type stubTextCompleter struct {
	responses []string
	calls     int
	lastSystem []string
	err       error
}

func (s *stubTextCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.lastSystem = append(s.lastSystem, messages[0].Content)
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func newTestBlackboardForSynth() *models.Blackboard {
	return &models.Blackboard{
		Target:       "core.pipeline.Pipeline.run",
		CurrentFocus: "core.pipeline.Pipeline.run",
		Symbols: map[string]models.SymbolState{
			"core.pipeline.Pipeline.run": {
				Resolved:       true,
				Kind:           "method",
				DefinedIn:      "core/pipeline.py",
				Span:           [2]int{2, 3},
				Snippet:        "def run(self):\n    helper()",
				ExtractedCalls: []string{"helper"},
			},
		},
		Frontier: []string{"helper"},
	}
}

func TestSynthesizer_Synthesize_ReturnsCleanDraftUnchanged(t *testing.T) {
	stub := &stubTextCompleter{responses: []string{"This function calls helper() to perform validation."}}
	s := NewSynthesizer(stub, "")

	out, err := s.Synthesize(context.Background(), newTestBlackboardForSynth())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out != stub.responses[0] {
		t.Errorf("expected the clean draft to pass through unchanged, got %q", out)
	}
	if stub.calls != 1 {
		t.Errorf("expected exactly one LLM call for a clean draft, got %d", stub.calls)
	}
}

func TestSynthesizer_Synthesize_RepromptsOnForbiddenWord(t *testing.T) {
	stub := &stubTextCompleter{responses: []string{
		"这个函数大概是用来校验输入的",
		"This function validates the input by calling helper().",
	}}
	s := NewSynthesizer(stub, "")

	out, err := s.Synthesize(context.Background(), newTestBlackboardForSynth())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected a re-prompt after a hedging draft, got %d calls", stub.calls)
	}
	if out != stub.responses[1] {
		t.Errorf("expected the second draft to be returned, got %q", out)
	}
	if !strings.Contains(stub.lastSystem[1], "大概") {
		t.Error("expected the re-prompt system message to name the offending word")
	}
}

func TestSynthesizer_Synthesize_PropagatesLLMError(t *testing.T) {
	stub := &stubTextCompleter{err: context.DeadlineExceeded}
	s := NewSynthesizer(stub, "")

	_, err := s.Synthesize(context.Background(), newTestBlackboardForSynth())
	if err == nil {
		t.Fatal("expected an error when the LLM call fails")
	}
}

func TestSynthesizer_Synthesize_IncludesExtraPromptInSystemMessage(t *testing.T) {
	stub := &stubTextCompleter{responses: []string{"Clean explanation with no hedging."}}
	s := NewSynthesizer(stub, "focus on concurrency behavior")

	_, err := s.Synthesize(context.Background(), newTestBlackboardForSynth())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(stub.lastSystem[0], "focus on concurrency behavior") {
		t.Error("expected the extra prompt to be appended to the system message")
	}
}

func TestSynthesizer_Synthesize_UserPromptCitesEvidence(t *testing.T) {
	var captured []llm.Message
	stub := &capturingCompleter{response: "Clean explanation.", capture: &captured}
	s := NewSynthesizer(stub, "")

	_, err := s.Synthesize(context.Background(), newTestBlackboardForSynth())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	userMsg := captured[len(captured)-1].Content
	if !strings.Contains(userMsg, "core.pipeline.Pipeline.run") {
		t.Error("expected the user prompt to name the target symbol")
	}
	if !strings.Contains(userMsg, "core/pipeline.py:L2-L3") {
		t.Error("expected the user prompt to cite the evidence's file and line span")
	}
	if !strings.Contains(userMsg, "helper") {
		t.Error("expected the user prompt to list the remaining frontier")
	}
}

// capturingCompleter records every message slice it's called with, for
// tests that need to inspect the generated user prompt rather than just
// the response text.
type capturingCompleter struct {
	response string
	capture  *[]llm.Message
}

func (c *capturingCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	*c.capture = append(*c.capture, messages...)
	return c.response, nil
}
