package domain

// ChangeType classifies a changed line in a parsed patch.
type ChangeType string

const (
	// ChangeAddition marks a line added by the patch ('+' prefix).
	ChangeAddition ChangeType = "addition"
	// ChangeDeletion marks a line removed by the patch ('-' prefix).
	ChangeDeletion ChangeType = "deletion"
)

// Identifier is a single identifier-shaped token found in a changed line.
// CharIndex is the 0-based character offset (counting runes, not bytes)
// of the token within the line text.
type Identifier struct {
	Name      string `json:"name"`
	CharIndex int    `json:"char_index"`
}

// LineChange is one added or removed line in a file change group.
// LineIndex is the 0-based position of this line within its group's
// change sequence: a single counter per group, shared across hunks,
// counting only additions and deletions in the order encountered.
// Text holds the line content without the leading '+' or '-'.
type LineChange struct {
	LineIndex   int          `json:"line_index"`
	Text        string       `json:"text"`
	Type        ChangeType   `json:"type"`
	Identifiers []Identifier `json:"identifiers"`
}

// FileChangeGroup collects the changed lines for one file pair in a patch.
// OldFile and NewFile are the raw header tokens as they appear in the
// patch; they are never validated against the filesystem.
type FileChangeGroup struct {
	OldFile string       `json:"old_file"`
	NewFile string       `json:"new_file"`
	Changes []LineChange `json:"changes"`
}

// PatchDigest is the full structured breakdown of one parsed diff
// document: file change groups in the order their headers appear in the
// input. The tree is constructed in one pass and never mutated after.
type PatchDigest []FileChangeGroup

// Additions returns the total number of added lines across all groups.
func (d PatchDigest) Additions() int {
	return d.countType(ChangeAddition)
}

// Deletions returns the total number of removed lines across all groups.
func (d PatchDigest) Deletions() int {
	return d.countType(ChangeDeletion)
}

func (d PatchDigest) countType(t ChangeType) int {
	total := 0
	for _, group := range d {
		for _, change := range group.Changes {
			if change.Type == t {
				total++
			}
		}
	}
	return total
}
