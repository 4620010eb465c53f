// Package json persists patch digests as JSON artifacts on disk.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/patch-digest/internal/domain"
)

// Artifact bundles a digest with where and under what label to write it.
type Artifact struct {
	Digest    domain.PatchDigest
	OutputDir string
	Label     string
}

// Writer renders digests into JSON files.
type Writer struct {
	now func() string
}

// NewWriter creates a new JSON writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists a digest to disk as a JSON file and returns its path.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filePath := filepath.Join(artifact.OutputDir, fmt.Sprintf("digest-%s-%s.json", sanitise(artifact.Label), w.now()))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(artifact.Digest); err != nil {
		return "", fmt.Errorf("encode digest to json: %w", err)
	}

	return filePath, nil
}

func sanitise(value string) string {
	if value == "" {
		return "patch"
	}
	return filepath.Base(value)
}
