// Package navigate forwards symbol, definition, and reference queries
// to an external language-server process through the bridge port. It is
// independent of the digest engine: both are reachable from the same
// request-routing layer but never call each other.
package navigate

import (
	"context"
	"fmt"
	"time"
)

// Position is a 0-indexed line/character pair within a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end position pair within a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location points at a region of a file, with both the language
// server's URI form and workspace-friendly path forms.
type Location struct {
	URI          string `json:"uri"`
	Range        Range  `json:"range"`
	AbsolutePath string `json:"absolutePath"`
	RelativePath string `json:"relativePath"`
}

// Symbol is one entry of a document-symbol listing. Kind carries the
// symbol kind name (Function, Class, ...) rather than the LSP integer.
type Symbol struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Range          Range  `json:"range"`
	SelectionRange Range  `json:"selectionRange"`
	Detail         string `json:"detail,omitempty"`
}

// Bridge defines the outbound port to the language-server process.
type Bridge interface {
	Definitions(ctx context.Context, path string, line, character int) ([]Location, error)
	References(ctx context.Context, path string, line, character int) ([]Location, error)
	DocumentSymbols(ctx context.Context, path string) ([]Symbol, error)
}

// Logger defines the outbound port for structured logging.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Deps captures the collaborators for the navigation service.
type Deps struct {
	Bridge  Bridge
	Logger  Logger // optional
	Timeout time.Duration
}

// Service wraps the bridge with request timeouts and logging. The
// bridge path is I/O-bound, so every query runs under a deadline and
// honors caller cancellation.
type Service struct {
	deps Deps
}

// DefaultTimeout bounds a single language-server query.
const DefaultTimeout = 15 * time.Second

// NewService constructs a navigation service.
func NewService(deps Deps) *Service {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}
	return &Service{deps: deps}
}

// Definitions resolves go-to-definition at the given position.
func (s *Service) Definitions(ctx context.Context, path string, line, character int) ([]Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	locations, err := s.deps.Bridge.Definitions(ctx, path, line, character)
	if err != nil {
		s.warn(ctx, "definitions query failed", path, err)
		return nil, fmt.Errorf("definitions %s:%d:%d: %w", path, line, character, err)
	}
	return locations, nil
}

// References resolves find-references at the given position.
func (s *Service) References(ctx context.Context, path string, line, character int) ([]Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	locations, err := s.deps.Bridge.References(ctx, path, line, character)
	if err != nil {
		s.warn(ctx, "references query failed", path, err)
		return nil, fmt.Errorf("references %s:%d:%d: %w", path, line, character, err)
	}
	return locations, nil
}

// DocumentSymbols lists the symbols of the given document.
func (s *Service) DocumentSymbols(ctx context.Context, path string) ([]Symbol, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	symbols, err := s.deps.Bridge.DocumentSymbols(ctx, path)
	if err != nil {
		s.warn(ctx, "document symbols query failed", path, err)
		return nil, fmt.Errorf("document symbols %s: %w", path, err)
	}
	return symbols, nil
}

func (s *Service) warn(ctx context.Context, message, path string, err error) {
	if s.deps.Logger == nil {
		return
	}
	s.deps.Logger.LogWarning(ctx, message, map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
}
