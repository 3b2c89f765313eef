// Package search implements two free-text retrieval tools: a plain
// repository grep (used by the Executor and the find_usages MCP tool)
// and a hybrid symbol-name/text search (used by the hybrid_search MCP
// tool).
package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

// excludeDirs mirrors the set the indexer skips while walking a root, so
// grep results never surface matches from caches or build output.
var excludeDirs = map[string]bool{
	".git": true, "__pycache__": true, ".venv": true, "venv": true,
	".mypy_cache": true, ".pytest_cache": true, "build": true, "dist": true,
}

// Hit is one matching line surfaced by GrepRepo or HybridSearch.
type Hit struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// GrepRepo performs a plain substring search for needle across every .py
// file under repoRoot, returning at most topK hits in file, then line
// order.
func GrepRepo(repoRoot, needle string, topK int) ([]Hit, error) {
	var hits []Hit
	err := filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}
		rel, _ := filepath.Rel(repoRoot, path)
		fileHits, ferr := grepFile(path, rel, needle)
		if ferr != nil {
			return nil
		}
		hits = append(hits, fileHits...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].File != hits[j].File {
			return hits[i].File < hits[j].File
		}
		return hits[i].Line < hits[j].Line
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func grepFile(path, rel, needle string) ([]Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hits []Hit
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.Contains(text, needle) {
			hits = append(hits, Hit{File: rel, Line: line, Text: strings.TrimSpace(text)})
		}
	}
	return hits, nil
}

// FindUsages greps repoRoot for the literal needle exactly as given —
// the planner picks whatever text (a bare name, a dotted attribute, a
// literal string) it wants usages of; this does not narrow it to a short
// name itself.
func FindUsages(repoRoot, needle string, topK int) ([]Hit, error) {
	return GrepRepo(repoRoot, needle, topK)
}

// HybridSearch combines indexed qualname matching with a plain-text grep:
// any symbol whose qualified name contains query is returned first,
// ranked above grep hits, and deduplicated by file:line.
func HybridSearch(idx *models.RepositoryIndex, repoRoot, query string, topK int) ([]Hit, error) {
	var hits []Hit
	seen := make(map[string]bool)

	var qualMatches []string
	for qn := range idx.Symbols {
		if strings.Contains(strings.ToLower(qn), strings.ToLower(query)) {
			qualMatches = append(qualMatches, qn)
		}
	}
	sort.Strings(qualMatches)
	for _, qn := range qualMatches {
		def := idx.Symbols[qn]
		key := fmt.Sprintf("%s:%d", def.File, def.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		hits = append(hits, Hit{File: def.File, Line: def.Line, Text: qn})
		if len(hits) >= topK {
			return hits, nil
		}
	}

	grepHits, err := GrepRepo(repoRoot, query, topK-len(hits))
	if err != nil {
		return hits, err
	}
	for _, h := range grepHits {
		key := fmt.Sprintf("%s:%d", h.File, h.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		hits = append(hits, h)
	}
	return hits, nil
}
