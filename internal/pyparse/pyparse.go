// Package pyparse extracts function and class definitions, import
// bindings, and call expressions from Python source using tree-sitter.
package pyparse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codetrace-dev/codetrace/pkg/models"
)

// FileResult is everything pyparse extracted from one source file.
type FileResult struct {
	Path    string
	Defs    []models.SymbolDefinition
	Imports []models.ImportBinding
	// Calls maps each def's qualified name to the call expressions found
	// directly in its body, in the three shapes extractCalls recognizes.
	Calls map[string][]string
	OK    bool
}

// Parser parses Python source files with a cached tree-sitter grammar.
type Parser struct {
	lang *sitter.Language
}

func New() *Parser {
	return &Parser{lang: python.GetLanguage()}
}

// Parse walks one file's syntax tree and extracts definitions, imports,
// and per-def call expressions. moduleName is the dotted module path this
// file was resolved to (e.g. "pkg.core.validators"), used as the prefix
// for every qualified name the file contributes.
func (p *Parser) Parse(ctx context.Context, path, moduleName string, content []byte) *FileResult {
	res := &FileResult{Path: path, Calls: make(map[string][]string)}

	tree, err := sitter.ParseCtx(ctx, content, p.lang)
	if err != nil || tree == nil {
		return res
	}

	w := &walker{content: content, moduleName: moduleName, result: res}
	w.walkBody(tree, nil)
	res.OK = true
	return res
}

type walker struct {
	content    []byte
	moduleName string
	result     *FileResult
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.content)
}

func (w *walker) qualname(stack []string) string {
	if len(stack) == 0 {
		return w.moduleName
	}
	return w.moduleName + "." + strings.Join(stack, ".")
}

// walkBody walks the direct (module-level) children of a block looking
// for top-level def/class statements and import statements. Only
// top-level functions and classes are emitted here; a class's own methods
// are handled one level deep by walkClassBody, and function bodies are
// never descended into for further definitions — a closure nested inside
// a function is not itself a tracked symbol, matching indexer.py's
// "top-level defs, plus methods one level inside classes" rule.
func (w *walker) walkBody(n *sitter.Node, stack []string) {
	if n == nil {
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_definition":
			w.handleFunctionDef(child, stack)
		case "class_definition":
			w.handleClassDef(child, stack)
		case "import_statement":
			w.handleImport(child)
		case "import_from_statement":
			w.handleImportFrom(child)
		case "decorated_definition":
			w.walkBody(child, stack)
		case "if_statement", "try_statement", "with_statement", "block", "module":
			w.walkBody(child, stack)
		}
	}
}

func (w *walker) handleFunctionDef(n *sitter.Node, stack []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	newStack := append(append([]string{}, stack...), name)
	qualname := w.qualname(newStack)

	// A def reached with a non-empty stack sits inside a class body and
	// is a method; walkBody never pushes onto the stack for module-level
	// code, so the distinction is exactly class membership.
	kind := models.SymbolKindFunction
	if len(stack) > 0 {
		kind = models.SymbolKindMethod
	}

	w.result.Defs = append(w.result.Defs, models.SymbolDefinition{
		QualifiedName: qualname,
		Kind:          kind,
		File:          w.result.Path,
		Line:          int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
	})

	if body := n.ChildByFieldName("body"); body != nil {
		w.result.Calls[qualname] = extractCalls(body, w.content)
	}
}

func (w *walker) handleClassDef(n *sitter.Node, stack []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	newStack := append(append([]string{}, stack...), name)
	qualname := w.qualname(newStack)

	w.result.Defs = append(w.result.Defs, models.SymbolDefinition{
		QualifiedName: qualname,
		Kind:          models.SymbolKindClass,
		File:          w.result.Path,
		Line:          int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
	})

	if body := n.ChildByFieldName("body"); body != nil {
		w.walkClassBody(body, newStack)
	}
}

// walkClassBody emits only the direct method definitions inside a class
// body (one level deep); it does not recurse into a method's own body
// looking for further nested defs.
func (w *walker) walkClassBody(n *sitter.Node, stack []string) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_definition":
			w.handleFunctionDef(child, stack)
		case "decorated_definition":
			w.walkClassBody(child, stack)
		}
	}
}

// handleImport handles `import a.b.c` and `import a.b.c as x`.
func (w *walker) handleImport(n *sitter.Node) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			mod := w.text(child)
			w.result.Imports = append(w.result.Imports, models.ImportBinding{
				Alias:  lastSegment(mod),
				Module: mod,
			})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			w.result.Imports = append(w.result.Imports, models.ImportBinding{
				Alias:  w.text(aliasNode),
				Module: w.text(nameNode),
			})
		}
	}
}

// handleImportFrom handles `from a.b import c, d as e` and relative
// imports (`from . import x`, `from ..pkg import y`).
func (w *walker) handleImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	base := w.text(moduleNode)
	if moduleNode != nil && moduleNode.Type() == "relative_import" {
		var ok bool
		base, ok = w.resolveRelative(moduleNode)
		if !ok {
			// A bare "from . import x" / "from .. import x" (dots with no
			// trailing module name) mirrors Python's ast.ImportFrom.module
			// being None, which the source engine's _extract_imports skips
			// entirely rather than binding anything.
			return
		}
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			name := w.text(child)
			if name == base {
				continue // this is the module_name itself, already consumed
			}
			mod := name
			if base != "" {
				mod = base + "." + name
			}
			w.result.Imports = append(w.result.Imports, models.ImportBinding{
				Alias:  name,
				Module: mod,
			})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			name := w.text(nameNode)
			mod := name
			if base != "" {
				mod = base + "." + name
			}
			w.result.Imports = append(w.result.Imports, models.ImportBinding{
				Alias:  w.text(aliasNode),
				Module: mod,
			})
		case "wildcard_import":
			w.result.Imports = append(w.result.Imports, models.ImportBinding{
				Alias:  "*",
				Module: base,
			})
		}
	}
}

// resolveRelative turns `..pkg` relative to the file's own module into an
// absolute dotted module path, mirroring the up-count arithmetic
// indexer.py applies to relative imports. The second return value is false
// for a bare dots-only relative import with no trailing module name, which
// the caller must skip entirely.
func (w *walker) resolveRelative(n *sitter.Node) (string, bool) {
	dots := strings.Count(w.text(n), ".")
	var rest string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "dotted_name" {
			rest = w.text(c)
		}
	}
	if rest == "" {
		return "", false
	}
	parts := strings.Split(w.moduleName, ".")
	up := len(parts) - dots
	if up < 0 {
		up = 0
	}
	base := strings.Join(parts[:up], ".")
	if base == "" {
		return rest, true
	}
	return base + "." + rest, true
}

func lastSegment(dotted string) string {
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
