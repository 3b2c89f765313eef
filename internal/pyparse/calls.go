package pyparse

import (
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractCalls walks a function body and records every call expression
// that matches one of the three recognized shapes:
//
//   - Name(...)                         -> "name"
//   - alias.method(...)                 -> "alias.method", where alias is
//     a bare Name
//   - ClassName(...).method(...)        -> "ClassName.method", where the
//     attribute's base is itself a call to a capitalized constructor
//
// Any other attribute-call shape (chained attributes, subscript bases,
// etc.) is dropped rather than degraded to a bare method name, matching
// the source engine's extract_calls_from_def.
func extractCalls(n *sitter.Node, content []byte) []string {
	var calls []string
	seen := make(map[string]bool)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
			if name, ok := callName(n, content); ok && !seen[name] {
				seen[name] = true
				calls = append(calls, name)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(n)
	return calls
}

func callName(call *sitter.Node, content []byte) (string, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case "identifier":
		return fn.Content(content), true
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return "", false
		}
		switch obj.Type() {
		case "identifier":
			return obj.Content(content) + "." + attr.Content(content), true
		case "call":
			innerFn := obj.ChildByFieldName("function")
			if innerFn != nil && innerFn.Type() == "identifier" {
				name := innerFn.Content(content)
				if isCapitalized(name) {
					return name + "." + attr.Content(content), true
				}
			}
		}
	}
	return "", false
}

func isCapitalized(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsUpper(rune(s[0]))
}
