package json_test

import (
	"context"
	encjson "encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outjson "github.com/bkyoung/patch-digest/internal/adapter/output/json"
	"github.com/bkyoung/patch-digest/internal/domain"
)

func sampleDigest() domain.PatchDigest {
	return domain.PatchDigest{
		{
			OldFile: "a/utils.py",
			NewFile: "b/utils.py",
			Changes: []domain.LineChange{
				{
					LineIndex: 0,
					Text:      "from utils import is_even",
					Type:      domain.ChangeDeletion,
					Identifiers: []domain.Identifier{
						{Name: "from", CharIndex: 0},
						{Name: "utils", CharIndex: 5},
						{Name: "import", CharIndex: 11},
						{Name: "is_even", CharIndex: 18},
					},
				},
			},
		},
	}
}

func TestWriteDigestArtifact(t *testing.T) {
	dir := t.TempDir()
	writer := outjson.NewWriter(func() string { return "20260826T120000" })

	path, err := writer.Write(context.Background(), outjson.Artifact{
		Digest:    sampleDigest(),
		OutputDir: dir,
		Label:     "change.patch",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "digest-change.patch-20260826T120000.json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded domain.PatchDigest
	require.NoError(t, encjson.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "b/utils.py", decoded[0].NewFile)
	assert.Equal(t, 18, decoded[0].Changes[0].Identifiers[3].CharIndex)
}

func TestWriteCreatesOutputDir(t *testing.T) {
	dir := t.TempDir() + "/nested/out"
	writer := outjson.NewWriter(func() string { return "ts" })

	path, err := writer.Write(context.Background(), outjson.Artifact{
		Digest:    domain.PatchDigest{},
		OutputDir: dir,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}
