// Package index builds a RepositoryIndex by walking a Python repository,
// parsing every source file with pyparse, and assembling the qualname,
// short-name, and import maps the resolver consults afterward.
package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codetrace-dev/codetrace/internal/pyparse"
	"github.com/codetrace-dev/codetrace/pkg/models"
)

// excludeDirs is the exact set indexer.py skips while walking a root.
var excludeDirs = map[string]bool{
	".git":           true,
	"__pycache__":    true,
	".venv":          true,
	"venv":           true,
	".mypy_cache":    true,
	".pytest_cache":  true,
	"build":          true,
	"dist":           true,
}

// Root is one directory tree to index. The primary root is the target
// repository; auxiliary roots are vendored or otherwise co-located
// library trees consulted only when the primary root doesn't already
// define a symbol.
type Root struct {
	Path    string
	Primary bool
}

// Builder constructs a RepositoryIndex across one or more roots.
type Builder struct {
	parser *pyparse.Parser
}

func NewBuilder() *Builder {
	return &Builder{parser: pyparse.New()}
}

// Build walks every root in order and merges the results into one
// RepositoryIndex. The primary root must be built first so auxiliary
// roots can be skipped file-by-file where a symbol is already known.
func (b *Builder) Build(ctx context.Context, roots []Root) (*models.RepositoryIndex, error) {
	idx := models.NewRepositoryIndex("")
	for _, root := range roots {
		if idx.RepoRoot == "" && root.Primary {
			idx.RepoRoot = root.Path
		}
		if err := b.buildFromRoot(ctx, idx, root); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (b *Builder) buildFromRoot(ctx context.Context, idx *models.RepositoryIndex, root Root) error {
	files, err := discoverFiles(root.Path)
	if err != nil {
		return err
	}

	type parsed struct {
		path       string
		moduleName string
		result     *pyparse.FileResult
	}
	results := make([]parsed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			content, err := os.ReadFile(f)
			if err != nil {
				results[i] = parsed{path: f}
				return nil
			}
			rel, _ := filepath.Rel(root.Path, f)
			mod := moduleNameFromPath(rel)
			res := b.parser.Parse(gctx, rel, mod, content)
			results[i] = parsed{path: rel, moduleName: mod, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if r.result == nil {
			idx.FileASTOk[r.path] = false
			continue
		}
		idx.FileASTOk[r.path] = r.result.OK

		// file-level skip: an auxiliary root never overrides a symbol the
		// primary root already defined. If any definition in this file
		// would collide with one already indexed from the primary root,
		// the entire file is skipped rather than merged piecemeal.
		if !root.Primary && len(r.result.Defs) > 0 {
			collides := false
			for _, def := range r.result.Defs {
				if _, exists := idx.Symbols[def.QualifiedName]; exists {
					collides = true
					break
				}
			}
			if collides {
				continue
			}
		}

		idx.FileToRoot[r.path] = root.Path
		idx.ImportMap[r.path] = r.result.Imports

		for _, def := range r.result.Defs {
			idx.Symbols[def.QualifiedName] = def
			short := shortName(def.QualifiedName)
			idx.ShortNameMap[short] = appendUnique(idx.ShortNameMap[short], def.QualifiedName)
		}
		for qn, calls := range r.result.Calls {
			idx.Calls[qn] = calls
		}
	}
	return nil
}

func discoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".py") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// moduleNameFromPath delegates to models.ModuleNameFromPath so the index
// builder and the resolver always agree on a file's dotted module name.
func moduleNameFromPath(relPath string) string {
	return models.ModuleNameFromPath(relPath)
}

func shortName(qualname string) string {
	parts := strings.Split(qualname, ".")
	return parts[len(parts)-1]
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
