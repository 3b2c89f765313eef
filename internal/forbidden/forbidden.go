// Package forbidden flags synthesizer output that hedges instead of
// stating what the evidence actually shows.
package forbidden

import "strings"

// Words is the exact hedging-word list utils.py's FORBIDDEN_WORDS checks
// for, carried verbatim rather than translated.
var Words = []string{
	"可能", "也许", "大概", "或许", "应该", "推测", "猜", "不确定", "似乎",
}

// Contains reports whether s contains any forbidden hedging word, and
// which one matched first.
func Contains(s string) (string, bool) {
	for _, w := range Words {
		if strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}
