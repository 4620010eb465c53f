// Package lsp implements the language-server bridge. It spawns a
// language server as a subprocess, speaks JSON-RPC 2.0 over stdio with
// Content-Length framing, and translates definition, reference, and
// document-symbol queries between the navigation service's types and
// the LSP wire shapes.
package lsp
