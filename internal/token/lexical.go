package token

import (
	"unicode"

	"github.com/bkyoung/patch-digest/internal/domain"
)

// Lexical is the default identifier extractor: a left-to-right scan for
// maximal runs of identifier characters. It is lexical-shape-based, not
// grammar-aware, so keywords and tokens inside string or comment
// literals are reported like any other identifier. A digit never starts
// a token, though digits may appear inside one.
type Lexical struct{}

// Extract returns the identifiers in line, in order of appearance.
// Offsets count characters (runes) from the start of the line.
func (Lexical) Extract(line string) []domain.Identifier {
	identifiers := []domain.Identifier{}
	runes := []rune(line)

	for i := 0; i < len(runes); {
		switch {
		case isIdentStart(runes[i]):
			start := i
			for i < len(runes) && isIdentContinue(runes[i]) {
				i++
			}
			identifiers = append(identifiers, domain.Identifier{
				Name:      string(runes[start:i]),
				CharIndex: start,
			})
		case unicode.IsDigit(runes[i]):
			// A digit-led run is a numeric literal, not an identifier.
			// Consume the whole run so its letters never start a token.
			for i < len(runes) && isIdentContinue(runes[i]) {
				i++
			}
		default:
			i++
		}
	}

	return identifiers
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
