package token

import (
	"strings"

	"github.com/bkyoung/patch-digest/internal/domain"
)

// Extractor yields the ordered identifier tokens of a single line of
// source text. It mirrors the diff parser's port so callers can select
// an implementation without importing the diff package.
type Extractor interface {
	Extract(line string) []domain.Identifier
}

// HasGrammar reports whether a grammar-aware extractor is available for
// the named language.
func HasGrammar(language string) bool {
	_, ok := grammars()[strings.ToLower(language)]
	return ok
}

// ForLanguage returns the grammar-aware extractor for the named language
// when one is bundled, and the lexical scanner otherwise.
func ForLanguage(language string) Extractor {
	if lang, ok := grammars()[strings.ToLower(language)]; ok {
		return NewGrammar(lang)
	}
	return Lexical{}
}
