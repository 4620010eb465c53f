package diff_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bkyoung/patch-digest/internal/diff"
	"github.com/bkyoung/patch-digest/internal/domain"
	"github.com/bkyoung/patch-digest/internal/token"
)

func TestParse_SingleFileSingleHunk(t *testing.T) {
	patch := `diff --git src/util.py src/util.py
index 1fc9018..93e9679 100644
--- src/util.py
+++ src/util.py
@@ -1,3 +1,3 @@
-from utils import is_even
+from utils import is_odd
 context line
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(digest) != 1 {
		t.Fatalf("expected 1 file group, got %d", len(digest))
	}

	group := digest[0]
	if group.OldFile != "src/util.py" || group.NewFile != "src/util.py" {
		t.Errorf("unexpected paths: %q -> %q", group.OldFile, group.NewFile)
	}

	if len(group.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(group.Changes))
	}

	del := group.Changes[0]
	if del.Type != domain.ChangeDeletion || del.LineIndex != 0 {
		t.Errorf("change 0: got type=%s index=%d", del.Type, del.LineIndex)
	}
	if del.Text != "from utils import is_even" {
		t.Errorf("change 0 text = %q", del.Text)
	}

	wantIdentifiers := []domain.Identifier{
		{Name: "from", CharIndex: 0},
		{Name: "utils", CharIndex: 5},
		{Name: "import", CharIndex: 11},
		{Name: "is_even", CharIndex: 18},
	}
	if !reflect.DeepEqual(del.Identifiers, wantIdentifiers) {
		t.Errorf("change 0 identifiers = %v, want %v", del.Identifiers, wantIdentifiers)
	}

	add := group.Changes[1]
	if add.Type != domain.ChangeAddition || add.LineIndex != 1 {
		t.Errorf("change 1: got type=%s index=%d", add.Type, add.LineIndex)
	}
}

func TestParse_AdditionWithLeadingWhitespace(t *testing.T) {
	patch := `diff --git a/p.py b/p.py
--- a/p.py
+++ b/p.py
@@ -1,1 +1,2 @@
 context
+if is_positive(person.age):
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	change := digest[0].Changes[0]
	if change.Text != "if is_positive(person.age):" {
		t.Fatalf("text = %q", change.Text)
	}

	want := []domain.Identifier{
		{Name: "if", CharIndex: 0},
		{Name: "is_positive", CharIndex: 3},
		{Name: "person", CharIndex: 15},
		{Name: "age", CharIndex: 22},
	}
	if !reflect.DeepEqual(change.Identifiers, want) {
		t.Fatalf("identifiers = %v, want %v", change.Identifiers, want)
	}
}

func TestParse_LineIndexSpansHunks(t *testing.T) {
	patch := `diff --git a/f.go b/f.go
--- a/f.go
+++ b/f.go
@@ -1,2 +1,3 @@
 context
+first addition
@@ -10,3 +11,2 @@
 context
-removed line
 context
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(digest) != 1 {
		t.Fatalf("expected a single file group across hunks, got %d", len(digest))
	}

	changes := digest[0].Changes
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	// One counter per file group, shared across hunks, counting only
	// additions and deletions.
	for i, change := range changes {
		if change.LineIndex != i {
			t.Errorf("change %d: LineIndex = %d", i, change.LineIndex)
		}
	}
	if changes[1].Type != domain.ChangeDeletion {
		t.Errorf("change 1 type = %s", changes[1].Type)
	}
}

func TestParse_TwoFileGroupsIndependentCounters(t *testing.T) {
	patch := `diff --git a/one.py b/one.py
--- a/one.py
+++ b/one.py
@@ -1,1 +1,2 @@
 context
+added in one
diff --git a/two.py b/two.py
--- a/two.py
+++ b/two.py
@@ -5,2 +5,1 @@
 context
-removed in two
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(digest) != 2 {
		t.Fatalf("expected 2 file groups, got %d", len(digest))
	}

	if digest[0].NewFile != "b/one.py" || digest[1].NewFile != "b/two.py" {
		t.Errorf("group order: %q then %q", digest[0].NewFile, digest[1].NewFile)
	}

	for gi, group := range digest {
		if len(group.Changes) != 1 {
			t.Fatalf("group %d: expected 1 change, got %d", gi, len(group.Changes))
		}
		if group.Changes[0].LineIndex != 0 {
			t.Errorf("group %d: counter did not restart, LineIndex = %d", gi, group.Changes[0].LineIndex)
		}
	}
}

func TestParse_ModeChangeOnlyDiff(t *testing.T) {
	patch := `diff --git a/script.sh b/script.sh
old mode 100644
new mode 100755
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(digest) != 1 {
		t.Fatalf("expected 1 file group, got %d", len(digest))
	}
	if len(digest[0].Changes) != 0 {
		t.Errorf("expected empty change sequence, got %d changes", len(digest[0].Changes))
	}
	if digest[0].Changes == nil {
		t.Error("changes should be an empty sequence, not nil")
	}
}

func TestParse_BinaryFileDiff(t *testing.T) {
	patch := `diff --git a/logo.png b/logo.png
index e69de29..4b825dc 100644
Binary files a/logo.png and b/logo.png differ
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(digest) != 1 || len(digest[0].Changes) != 0 {
		t.Fatalf("expected one empty file group, got %+v", digest)
	}
}

func TestParse_RenameKeepsBothPaths(t *testing.T) {
	patch := `diff --git a/old_name.py b/new_name.py
--- a/old_name.py
+++ b/new_name.py
@@ -1,1 +1,1 @@
-x = 1
+x = 2
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	group := digest[0]
	if group.OldFile != "a/old_name.py" || group.NewFile != "b/new_name.py" {
		t.Errorf("rename paths: %q -> %q", group.OldFile, group.NewFile)
	}
}

func TestParse_HeaderPairWithoutGitLine(t *testing.T) {
	patch := `--- lib/core.rb
+++ lib/core.rb
@@ -3,1 +3,1 @@
-old_value = 1
+new_value = 2
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	group := digest[0]
	if group.OldFile != "lib/core.rb" || group.NewFile != "lib/core.rb" {
		t.Errorf("paths: %q -> %q", group.OldFile, group.NewFile)
	}
	if len(group.Changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(group.Changes))
	}
}

func TestParse_ConcatenatedBareDiffs(t *testing.T) {
	patch := `--- a.txt
+++ a.txt
@@ -1,1 +1,1 @@
-first old
+first new
--- b.txt
+++ b.txt
@@ -1,1 +1,1 @@
-second old
+second new
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(digest) != 2 {
		t.Fatalf("expected 2 file groups, got %d", len(digest))
	}
	if digest[1].OldFile != "b.txt" {
		t.Errorf("second group old file = %q", digest[1].OldFile)
	}
}

func TestParse_RepeatedPathPairStaysDistinct(t *testing.T) {
	patch := `diff --git a/f.py b/f.py
--- a/f.py
+++ b/f.py
@@ -1,1 +1,1 @@
-one
+uno
diff --git a/f.py b/f.py
--- a/f.py
+++ b/f.py
@@ -9,1 +9,1 @@
-two
+dos
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// The parser never merges by path: same pair, two blocks, two groups.
	if len(digest) != 2 {
		t.Fatalf("expected 2 distinct groups, got %d", len(digest))
	}
	if digest[1].Changes[0].LineIndex != 0 {
		t.Errorf("second group counter should restart at 0, got %d", digest[1].Changes[0].LineIndex)
	}
}

func TestParse_NoNewlineMarkerIgnored(t *testing.T) {
	patch := `diff --git a/t.txt b/t.txt
--- a/t.txt
+++ b/t.txt
@@ -1,1 +1,1 @@
-last line
+last line changed
\ No newline at end of file
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(digest[0].Changes) != 2 {
		t.Fatalf("marker should not become a change, got %d changes", len(digest[0].Changes))
	}
}

func TestParse_OmittedCountsDefaultToOne(t *testing.T) {
	patch := `diff --git a/t.txt b/t.txt
--- a/t.txt
+++ b/t.txt
@@ -7 +7 @@
-old
+new
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(digest[0].Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(digest[0].Changes))
	}
}

func TestParse_NoHeaderAnywhereIsMalformed(t *testing.T) {
	_, err := diff.Parse("just some text\nwith no diff headers\n", token.Lexical{})
	if !errors.Is(err, diff.ErrMalformedPatch) {
		t.Fatalf("expected ErrMalformedPatch, got %v", err)
	}
}

func TestParse_BadHunkRangeIsMalformed(t *testing.T) {
	patch := `diff --git a/f b/f
--- a/f
+++ b/f
@@ -x,1 +1,1 @@
-old
+new
`

	_, err := diff.Parse(patch, token.Lexical{})
	if !errors.Is(err, diff.ErrMalformedPatch) {
		t.Fatalf("expected ErrMalformedPatch, got %v", err)
	}
}

func TestParse_TruncatedHunkIsNotAnError(t *testing.T) {
	patch := `diff --git a/f b/f
--- a/f
+++ b/f
@@ -1,5 +1,5 @@
 context
-removed
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(digest[0].Changes) != 1 {
		t.Fatalf("expected 1 change from truncated hunk, got %d", len(digest[0].Changes))
	}
}

func TestParse_Idempotent(t *testing.T) {
	patch := `diff --git a/one.py b/one.py
--- a/one.py
+++ b/one.py
@@ -1,2 +1,3 @@
 context
+added = compute(value)
-removed = old_value
`

	first, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("parsing the same patch twice produced different digests")
	}
}

func TestParse_OffsetsIndexIntoText(t *testing.T) {
	patch := `diff --git a/m.py b/m.py
--- a/m.py
+++ b/m.py
@@ -1,1 +1,2 @@
 context
+total = price * quantity + tax_rate
`

	digest, err := diff.Parse(patch, token.Lexical{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	change := digest[0].Changes[0]
	last := -1
	for _, id := range change.Identifiers {
		if id.CharIndex <= last {
			t.Errorf("offsets not strictly increasing: %d after %d", id.CharIndex, last)
		}
		last = id.CharIndex
		got := change.Text[id.CharIndex : id.CharIndex+len(id.Name)]
		if got != id.Name {
			t.Errorf("text[%d:] = %q, want %q", id.CharIndex, got, id.Name)
		}
	}
	if len(change.Identifiers) != 4 {
		t.Errorf("expected 4 identifiers, got %d", len(change.Identifiers))
	}
}
