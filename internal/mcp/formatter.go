package mcp

import (
	"fmt"
	"strings"

	"github.com/codetrace-dev/codetrace/internal/mcp/session"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

const defaultMaxTokens = 4000

// Verbosity controls how much detail is included in symbol cards.
type Verbosity string

const (
	VerbositySummary  Verbosity = "summary"
	VerbosityStandard Verbosity = "standard"
	VerbosityFull     Verbosity = "full"
)

// ParseVerbosity returns a Verbosity from a string, defaulting to standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "summary":
		return VerbositySummary
	case "full":
		return VerbosityFull
	default:
		return VerbosityStandard
	}
}

// ResponseBuilder constructs token-budgeted Markdown responses for MCP tools.
type ResponseBuilder struct {
	buf           strings.Builder
	tokenEstimate int
	maxTokens     int
	truncated     bool
	itemCount     int
}

// NewResponseBuilder creates a builder with the given token budget.
// If maxTokens <= 0, defaultMaxTokens is used.
func NewResponseBuilder(maxTokens int) *ResponseBuilder {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ResponseBuilder{maxTokens: maxTokens}
}

// AddHeader writes a header line to the response.
func (rb *ResponseBuilder) AddHeader(text string) {
	line := text + "\n\n"
	rb.buf.WriteString(line)
	rb.tokenEstimate += len(line) / 4
}

// AddLine writes a single line to the response, returning false if budget exceeded.
func (rb *ResponseBuilder) AddLine(text string) bool {
	line := text + "\n"
	cost := len(line) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(line)
	rb.tokenEstimate += cost
	return true
}

// AddSymbolCard renders a piece of resolved evidence at the requested
// verbosity. Returns false if the card would exceed the token budget.
func (rb *ResponseBuilder) AddSymbolCard(ev models.Evidence, verbosity Verbosity, sess *session.Session) bool {
	card := formatSymbolCard(ev, verbosity, sess)
	cost := len(card) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(card)
	rb.tokenEstimate += cost
	rb.itemCount++
	return true
}

// AddSymbolStub renders a one-line stub for a symbol already surfaced to
// this session.
func (rb *ResponseBuilder) AddSymbolStub(ev models.Evidence) bool {
	stub := fmt.Sprintf("- ~%s~ (%s) — already examined | `%s`\n", ev.SymbolRef, ev.Kind, ev.DefinedIn)
	cost := len(stub) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(stub)
	rb.tokenEstimate += cost
	rb.itemCount++
	return true
}

// AddSearchHit renders a single grep match line from find_usages/hybrid_search.
func (rb *ResponseBuilder) AddSearchHit(hit models.SearchHit) bool {
	line := fmt.Sprintf("- `%s:%d` %s\n", hit.File, hit.Line, strings.TrimSpace(hit.Text))
	cost := len(line) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(line)
	rb.tokenEstimate += cost
	rb.itemCount++
	return true
}

// AddSection writes a section with a heading.
func (rb *ResponseBuilder) AddSection(heading string, content string) bool {
	section := fmt.Sprintf("### %s\n%s\n\n", heading, content)
	cost := len(section) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(section)
	rb.tokenEstimate += cost
	return true
}

// AddRawText writes raw text, respecting the budget.
func (rb *ResponseBuilder) AddRawText(text string) bool {
	cost := len(text) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(text)
	rb.tokenEstimate += cost
	return true
}

// Finalize appends a truncation notice and returns the final response text.
func (rb *ResponseBuilder) Finalize(totalCount, returnedCount int) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d results (truncated to ~%d tokens). Raise `max_response_tokens` to see more.*\n",
			returnedCount, totalCount, rb.maxTokens))
	}
	return rb.buf.String()
}

// TokenEstimate returns the current estimated token count.
func (rb *ResponseBuilder) TokenEstimate() int {
	return rb.tokenEstimate
}

// IsTruncated returns whether the response was truncated.
func (rb *ResponseBuilder) IsTruncated() bool {
	return rb.truncated
}

// ItemCount returns the number of items added.
func (rb *ResponseBuilder) ItemCount() int {
	return rb.itemCount
}

// formatSymbolCard renders one piece of resolved evidence as a Markdown
// card at the given verbosity. Grounded on the teacher's
// formatSymbolCard, re-skinned for codetrace's resolved-evidence shape
// (defining file, line span, source snippet, outgoing calls) instead of
// a stored graph symbol row.
func formatSymbolCard(ev models.Evidence, verbosity Verbosity, sess *session.Session) string {
	var b strings.Builder

	seen := ""
	if sess != nil && sess.IsSeen(ev.SymbolRef) {
		seen = " *(seen)*"
	}

	switch verbosity {
	case VerbositySummary:
		b.WriteString(fmt.Sprintf("**%s** (%s)%s\n", ev.SymbolRef, ev.Kind, seen))
		b.WriteString(fmt.Sprintf("  File: `%s`\n\n", ev.DefinedIn))

	case VerbosityFull:
		b.WriteString(fmt.Sprintf("**%s** (%s)%s\n", ev.SymbolRef, ev.Kind, seen))
		b.WriteString(fmt.Sprintf("  File: `%s`:L%d-L%d\n", ev.DefinedIn, ev.Span[0], ev.Span[1]))
		if len(ev.ExtractedCalls) > 0 {
			b.WriteString(fmt.Sprintf("  Calls: %s\n", strings.Join(ev.ExtractedCalls, ", ")))
		}
		b.WriteString("  Source:\n```python\n")
		b.WriteString(ev.Snippet)
		b.WriteString("\n```\n\n")

	default: // standard
		b.WriteString(fmt.Sprintf("**%s** (%s)%s\n", ev.SymbolRef, ev.Kind, seen))
		b.WriteString(fmt.Sprintf("  File: `%s`:L%d-L%d\n", ev.DefinedIn, ev.Span[0], ev.Span[1]))
		if len(ev.ExtractedCalls) > 0 {
			b.WriteString(fmt.Sprintf("  Calls: %s\n", strings.Join(ev.ExtractedCalls, ", ")))
		}
		b.WriteString("\n")
	}

	return b.String()
}
