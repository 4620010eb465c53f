package diff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bkyoung/patch-digest/internal/domain"
)

// ErrMalformedPatch indicates the input contains no recognizable file
// header, or a hunk header whose line-range numbers fail to parse.
// The error is fatal to the parse call: no partial digest is returned.
var ErrMalformedPatch = errors.New("malformed patch")

// Extractor is the port the parser uses to annotate changed lines with
// identifier tokens. Implementations must be line-local and stateless:
// the same line always yields the same (possibly empty) sequence.
type Extractor interface {
	Extract(line string) []domain.Identifier
}

// parser states.
type state int

const (
	seekFileHeader state = iota
	seekHunkHeader
	inHunk
)

// hunkSpan holds the parsed `@@ -a[,b] +c[,d] @@` ranges. The numbers
// are bookkeeping only; they are not propagated into the digest.
type hunkSpan struct {
	oldStart int
	oldLines int
	newStart int
	newLines int
}

// Parse turns raw unified-diff text into a PatchDigest. The input may
// contain several concatenated per-file diffs, as produced by `git diff`
// across multiple files. Every addition and deletion line is passed to
// extractor and the resulting identifiers are attached to its record.
func Parse(patch string, extractor Extractor) (domain.PatchDigest, error) {
	if extractor == nil {
		extractor = noopExtractor{}
	}

	digest := domain.PatchDigest{}
	st := seekFileHeader

	var (
		lineIndex    int    // per-group counter over +/- lines, spans hunks
		pendingOld   string // path from a `---` line awaiting its `+++` pair
		havePending  bool
		sawHunks     bool // current group has had at least one @@ header
		oldRemaining int  // lines still expected on the old side of the hunk
		newRemaining int  // lines still expected on the new side of the hunk
	)

	startGroup := func(oldFile, newFile string) {
		digest = append(digest, domain.FileChangeGroup{
			OldFile: oldFile,
			NewFile: newFile,
			Changes: []domain.LineChange{},
		})
		lineIndex = 0
		sawHunks = false
		havePending = false
		st = seekHunkHeader
	}

	current := func() *domain.FileChangeGroup {
		return &digest[len(digest)-1]
	}

	appendChange := func(text string, typ domain.ChangeType) {
		group := current()
		group.Changes = append(group.Changes, domain.LineChange{
			LineIndex:   lineIndex,
			Text:        text,
			Type:        typ,
			Identifiers: extractor.Extract(text),
		})
		lineIndex++
	}

	for _, line := range strings.Split(patch, "\n") {
		switch st {
		case seekFileHeader:
			if old, new, ok := parseGitHeader(line); ok {
				startGroup(old, new)
				continue
			}
			if strings.HasPrefix(line, "--- ") {
				pendingOld = strings.TrimPrefix(line, "--- ")
				havePending = true
				continue
			}
			if havePending && strings.HasPrefix(line, "+++ ") {
				startGroup(pendingOld, strings.TrimPrefix(line, "+++ "))
				continue
			}
			// Anything else is noise before the first header.

		case seekHunkHeader:
			if old, new, ok := parseGitHeader(line); ok {
				startGroup(old, new)
				continue
			}
			if strings.HasPrefix(line, "--- ") {
				if sawHunks {
					// A bare ---/+++ pair after a completed hunk run
					// opens the next concatenated file diff.
					pendingOld = strings.TrimPrefix(line, "--- ")
					havePending = true
					st = seekFileHeader
					continue
				}
				// The ---/+++ pair is authoritative for paths.
				current().OldFile = strings.TrimPrefix(line, "--- ")
				continue
			}
			if strings.HasPrefix(line, "+++ ") && !sawHunks {
				current().NewFile = strings.TrimPrefix(line, "+++ ")
				continue
			}
			if strings.HasPrefix(line, "@@") {
				span, err := parseHunkHeader(line)
				if err != nil {
					return nil, err
				}
				oldRemaining = span.oldLines
				newRemaining = span.newLines
				sawHunks = true
				st = inHunk
				continue
			}
			// index lines, mode changes, binary markers: bookkeeping only.

		case inHunk:
			if old, new, ok := parseGitHeader(line); ok {
				startGroup(old, new)
				continue
			}
			if strings.HasPrefix(line, "@@") {
				span, err := parseHunkHeader(line)
				if err != nil {
					return nil, err
				}
				oldRemaining = span.oldLines
				newRemaining = span.newLines
				continue
			}
			if strings.HasPrefix(line, "--- ") && oldRemaining == 0 && newRemaining == 0 {
				// The hunk is exhausted, so this is the next file's
				// header rather than a deletion line.
				pendingOld = strings.TrimPrefix(line, "--- ")
				havePending = true
				st = seekFileHeader
				continue
			}
			switch {
			case strings.HasPrefix(line, "+"):
				appendChange(line[1:], domain.ChangeAddition)
				newRemaining--
			case strings.HasPrefix(line, "-"):
				appendChange(line[1:], domain.ChangeDeletion)
				oldRemaining--
			case strings.HasPrefix(line, " "), line == "":
				// Context lines are consumed for bookkeeping but never
				// become a LineChange.
				oldRemaining--
				newRemaining--
			case strings.HasPrefix(line, "\\"):
				// "\ No newline at end of file" marker.
			default:
				// Trailer between diffs (e.g. a stray index line).
			}
			if oldRemaining <= 0 && newRemaining <= 0 {
				oldRemaining = 0
				newRemaining = 0
				st = seekHunkHeader
			}
		}
	}

	if len(digest) == 0 {
		return nil, fmt.Errorf("no file header found: %w", ErrMalformedPatch)
	}

	return digest, nil
}

// parseGitHeader recognizes `diff --git <old> <new>` lines and returns
// the two raw path tokens.
func parseGitHeader(line string) (oldFile, newFile string, ok bool) {
	if !strings.HasPrefix(line, "diff --git ") {
		return "", "", false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "diff --git "))
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// parseHunkHeader parses `@@ -a[,b] +c[,d] @@ optional context`.
// Omitted counts default to 1.
func parseHunkHeader(line string) (hunkSpan, error) {
	rest := strings.TrimPrefix(line, "@@")
	end := strings.Index(rest, "@@")
	if end < 0 {
		return hunkSpan{}, fmt.Errorf("hunk header %q missing closing @@: %w", line, ErrMalformedPatch)
	}

	span := hunkSpan{}
	var haveOld, haveNew bool
	for _, field := range strings.Fields(rest[:end]) {
		switch {
		case strings.HasPrefix(field, "-"):
			start, count, err := parseRange(strings.TrimPrefix(field, "-"))
			if err != nil {
				return hunkSpan{}, fmt.Errorf("hunk header %q: %v: %w", line, err, ErrMalformedPatch)
			}
			span.oldStart, span.oldLines = start, count
			haveOld = true
		case strings.HasPrefix(field, "+"):
			start, count, err := parseRange(strings.TrimPrefix(field, "+"))
			if err != nil {
				return hunkSpan{}, fmt.Errorf("hunk header %q: %v: %w", line, err, ErrMalformedPatch)
			}
			span.newStart, span.newLines = start, count
			haveNew = true
		}
	}
	if !haveOld || !haveNew {
		return hunkSpan{}, fmt.Errorf("hunk header %q missing line ranges: %w", line, ErrMalformedPatch)
	}
	return span, nil
}

// parseRange parses "start,count" or "start" (count defaults to 1).
func parseRange(s string) (start, count int, err error) {
	countPart := ""
	if idx := strings.Index(s, ","); idx >= 0 {
		s, countPart = s[:idx], s[idx+1:]
	}
	start, err = strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("bad start %q", s)
	}
	if countPart == "" {
		return start, 1, nil
	}
	count, err = strconv.Atoi(countPart)
	if err != nil {
		return 0, 0, fmt.Errorf("bad count %q", countPart)
	}
	return start, count, nil
}

// noopExtractor keeps the parser total when no extractor is supplied.
type noopExtractor struct{}

func (noopExtractor) Extract(string) []domain.Identifier {
	return []domain.Identifier{}
}
