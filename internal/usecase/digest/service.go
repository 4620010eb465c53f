// Package digest orchestrates the diff-patch digest pipeline: parse the
// patch, annotate changed lines with identifiers, and optionally record
// the run in the history store.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bkyoung/patch-digest/internal/diff"
	"github.com/bkyoung/patch-digest/internal/domain"
)

// Store defines the outbound port for persisting digest run history.
// The digest engine itself is stateless; recording happens here, after
// a successful parse.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	Close() error
}

// Logger defines the outbound port for structured logging.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Run records one completed digest computation.
type Run struct {
	ID        string
	PatchSHA  string
	Tokenizer string
	FileCount int
	Additions int
	Deletions int
	Duration  time.Duration
	CreatedAt time.Time
}

// Deps captures the collaborators for the digest service.
type Deps struct {
	Extractor diff.Extractor
	Tokenizer string // name of the selected extractor, for run records
	Store     Store  // optional
	Logger    Logger // optional
	Now       func() time.Time
	NewID     func() string
}

// Service computes patch digests. Safe for concurrent use: each call
// allocates and returns its own digest tree with no shared state.
type Service struct {
	deps Deps
}

// NewService constructs a digest service.
func NewService(deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// Digest parses the raw unified-diff text and returns the annotated
// digest. A malformed patch surfaces diff.ErrMalformedPatch unmodified;
// parsing is deterministic, so failures are never retried.
func (s *Service) Digest(ctx context.Context, patch string) (domain.PatchDigest, error) {
	start := s.deps.Now()

	parsed, err := diff.Parse(patch, s.deps.Extractor)
	if err != nil {
		return nil, err
	}

	duration := s.deps.Now().Sub(start)
	if s.deps.Logger != nil {
		s.deps.Logger.LogInfo(ctx, "patch digested", map[string]interface{}{
			"files":     len(parsed),
			"additions": parsed.Additions(),
			"deletions": parsed.Deletions(),
			"duration":  duration.String(),
		})
	}

	s.record(ctx, patch, parsed, duration)

	return parsed, nil
}

// record persists the run when a store is configured. Failures are
// logged and swallowed: history is best effort and never blocks a
// successful digest.
func (s *Service) record(ctx context.Context, patch string, parsed domain.PatchDigest, duration time.Duration) {
	if s.deps.Store == nil {
		return
	}

	id := ""
	if s.deps.NewID != nil {
		id = s.deps.NewID()
	}
	sum := sha256.Sum256([]byte(patch))

	run := Run{
		ID:        id,
		PatchSHA:  hex.EncodeToString(sum[:]),
		Tokenizer: s.deps.Tokenizer,
		FileCount: len(parsed),
		Additions: parsed.Additions(),
		Deletions: parsed.Deletions(),
		Duration:  duration,
		CreatedAt: s.deps.Now(),
	}

	if err := s.deps.Store.SaveRun(ctx, run); err != nil && s.deps.Logger != nil {
		s.deps.Logger.LogWarning(ctx, "failed to record digest run", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
