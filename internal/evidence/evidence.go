// Package evidence reads a resolved symbol's source span off disk and
// packages it into the Evidence shape the blackboard and synthesizer
// consume.
package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

// MaxSnippetLines bounds how much of a definition's body gets embedded in
// an Evidence card before the snippet is truncated with a note.
const MaxSnippetLines = 160

// Builder opens resolved symbols into Evidence by reading their source
// span from disk.
type Builder struct {
	resolver *resolve.Resolver
	idx      *models.RepositoryIndex
}

func New(idx *models.RepositoryIndex, resolver *resolve.Resolver) *Builder {
	return &Builder{resolver: resolver, idx: idx}
}

// OpenSymbol resolves symbolRef (using hintFile to disambiguate where
// possible), reads its defining span from disk, and returns the
// corresponding Evidence.
func (b *Builder) OpenSymbol(symbolRef, hintFile string) (*models.Evidence, error) {
	res := b.resolver.Resolve(symbolRef, hintFile)
	if !res.Resolved {
		return nil, fmt.Errorf("symbol not resolved: %s", symbolRef)
	}

	root := b.idx.FileToRoot[res.Def.File]
	fullPath := filepath.Join(root, res.Def.File)
	snippet, err := readSnippet(fullPath, res.Def.Line, res.Def.EndLine)
	if err != nil {
		return nil, fmt.Errorf("read snippet for %s: %w", symbolRef, err)
	}

	source := "main_repo"
	if root != b.idx.RepoRoot {
		source = "extra_lib"
	}

	return &models.Evidence{
		SymbolRef:      res.Def.QualifiedName,
		Kind:           string(res.Def.Kind),
		DefinedIn:      res.Def.File,
		Span:           [2]int{res.Def.Line, res.Def.EndLine},
		Snippet:        clipLines(snippet, MaxSnippetLines),
		ExtractedCalls: b.idx.Calls[res.Def.QualifiedName],
		Source:         source,
	}, nil
}

// readSnippet returns the 1-indexed, inclusive line range [start, end]
// from path, with no surrounding context lines.
func readSnippet(path string, start, end int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(content), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", nil
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// clipLines keeps the first maxLines lines of s, appending a truncation
// note when more were dropped.
func clipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	kept := strings.Join(lines[:maxLines], "\n")
	return fmt.Sprintf("%s\n... (truncated, %d more lines)", kept, len(lines)-maxLines)
}
