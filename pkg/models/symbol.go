package models

import (
	"path/filepath"
	"strings"
)

// ModuleNameFromPath turns a file path relative to a source root into its
// dotted module name: a directory contributes its own segment, and an
// `__init__`-style package entry file contributes nothing beyond its
// directory (the directory's name already stands in for the package).
// Shared by the index builder (to name a file's own module) and the
// resolver (to name the hint file's module for S4 scoring), so both
// agree on exactly the same dotted path for a given file.
func ModuleNameFromPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(strings.TrimSuffix(relPath, ".py"), "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// SymbolKind distinguishes the three definition shapes codetrace indexes.
type SymbolKind string

const (
	SymbolKindFunction SymbolKind = "function"
	SymbolKindMethod   SymbolKind = "method"
	SymbolKindClass    SymbolKind = "class"
)

// SymbolDefinition is one function or class definition discovered while
// walking a Python module's AST.
type SymbolDefinition struct {
	QualifiedName string     `json:"qualname"`
	Kind          SymbolKind `json:"kind"`
	File          string     `json:"file"`
	Line          int        `json:"lineno"`
	EndLine       int        `json:"end_lineno"`
}

// ImportBinding records one name a file's import statements bind into its
// local scope, mapped back to the dotted module it came from.
type ImportBinding struct {
	Alias  string `json:"alias"`
	Module string `json:"module"`
}
