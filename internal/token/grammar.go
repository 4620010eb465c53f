package token

import (
	"context"
	"sort"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/bkyoung/patch-digest/internal/domain"
)

// Grammar is a grammar-aware identifier extractor backed by tree-sitter.
// It parses the line as a standalone source fragment and reports only
// true identifier nodes, so keywords and literals are excluded. When the
// line is not valid as a standalone fragment (a single diff line rarely
// is), it falls back to the lexical scanner so extraction never fails.
type Grammar struct {
	lang     *sitter.Language
	fallback Lexical
}

// NewGrammar creates a grammar extractor for the given tree-sitter
// language.
func NewGrammar(lang *sitter.Language) *Grammar {
	return &Grammar{lang: lang}
}

// Extract returns the identifier nodes found in line, ordered by
// character offset. Offsets count runes, converting from tree-sitter's
// byte columns.
func (g *Grammar) Extract(line string) []domain.Identifier {
	src := []byte(line)

	parser := sitter.NewParser()
	parser.SetLanguage(g.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return g.fallback.Extract(line)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() || hasMissing(root) {
		return g.fallback.Extract(line)
	}

	identifiers := []domain.Identifier{}
	collectIdentifiers(root, src, line, &identifiers)

	sort.SliceStable(identifiers, func(i, j int) bool {
		return identifiers[i].CharIndex < identifiers[j].CharIndex
	})

	return identifiers
}

// hasMissing reports whether the tree contains a MISSING node. The
// parser recovers from incomplete fragments by inserting zero-width
// tokens without marking the tree as erroneous, so HasError alone does
// not catch truncated lines.
func hasMissing(node *sitter.Node) bool {
	if node.IsMissing() {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if hasMissing(node.Child(i)) {
			return true
		}
	}
	return false
}

func collectIdentifiers(node *sitter.Node, src []byte, line string, out *[]domain.Identifier) {
	if node.Type() == "identifier" {
		start := int(node.StartByte())
		if start > len(line) {
			return
		}
		*out = append(*out, domain.Identifier{
			Name:      node.Content(src),
			CharIndex: utf8.RuneCountInString(line[:start]),
		})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectIdentifiers(node.Child(i), src, line, out)
	}
}

// grammars maps supported language names to their tree-sitter grammars.
// Python is the only bundled grammar today; adding a language means
// adding an entry here and its import above.
func grammars() map[string]*sitter.Language {
	return map[string]*sitter.Language{
		"python": python.GetLanguage(),
	}
}
