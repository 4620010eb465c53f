// Package token extracts identifier-shaped tokens from single lines of
// source text.
//
// Two extractors are provided: a language-agnostic lexical scanner (the
// default and required fallback) and a grammar-aware extractor backed by
// tree-sitter for languages with a bundled grammar. Both honor the same
// contract: tokens are reported in order of strictly increasing character
// offset, never overlap, and extraction never fails — a line with no
// identifier-shaped tokens yields an empty sequence.
package token
