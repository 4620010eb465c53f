// Package diff parses unified diff text into a structured, per-file,
// per-hunk digest of added and removed lines.
//
// The parser is a line-oriented state machine over the raw patch text.
// It understands `diff --git` and `---`/`+++` file headers, `@@` hunk
// headers, and the `+`/`-`/` ` line prefixes, and it annotates every
// changed line with the identifier tokens it contains. It knows nothing
// about any target language's grammar and never touches the filesystem.
package diff
