// Package markdown renders patch digests into human-readable Markdown
// reports.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/patch-digest/internal/domain"
)

type clock func() string

// Artifact bundles a digest with where and under what label to write it.
type Artifact struct {
	Digest    domain.PatchDigest
	OutputDir string
	Label     string
}

// Writer renders digests into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists a Markdown artifact to disk and returns its path.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("digest-%s-%s.md", sanitise(artifact.Label), w.now())
	path := filepath.Join(artifact.OutputDir, filename)

	if err := os.WriteFile(path, []byte(Render(artifact.Digest)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

// Render builds the Markdown report for a digest.
func Render(digest domain.PatchDigest) string {
	var builder strings.Builder
	caser := cases.Title(language.English)

	builder.WriteString("# Patch Digest\n\n")
	builder.WriteString(fmt.Sprintf("- Files: %d\n", len(digest)))
	builder.WriteString(fmt.Sprintf("- Additions: %d\n", digest.Additions()))
	builder.WriteString(fmt.Sprintf("- Deletions: %d\n\n", digest.Deletions()))

	if len(digest) == 0 {
		builder.WriteString("No file changes.\n")
		return builder.String()
	}

	for _, group := range digest {
		builder.WriteString(fmt.Sprintf("## %s -> %s\n\n", group.OldFile, group.NewFile))
		if len(group.Changes) == 0 {
			builder.WriteString("No line changes.\n\n")
			continue
		}
		for _, change := range group.Changes {
			builder.WriteString(fmt.Sprintf("### %s %d\n\n", caser.String(string(change.Type)), change.LineIndex))
			builder.WriteString(fmt.Sprintf("```\n%s\n```\n\n", change.Text))
			if len(change.Identifiers) == 0 {
				builder.WriteString("No identifiers.\n\n")
				continue
			}
			for _, ident := range change.Identifiers {
				builder.WriteString(fmt.Sprintf("- `%s` at %d\n", ident.Name, ident.CharIndex))
			}
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

func sanitise(value string) string {
	if value == "" {
		return "patch"
	}
	return filepath.Base(value)
}
