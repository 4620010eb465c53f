package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/patch-digest/internal/adapter/httpapi"
	"github.com/bkyoung/patch-digest/internal/diff"
	"github.com/bkyoung/patch-digest/internal/domain"
	"github.com/bkyoung/patch-digest/internal/usecase/navigate"
)

type digesterStub struct {
	digest domain.PatchDigest
	err    error
	got    string
}

func (d *digesterStub) Digest(_ context.Context, patch string) (domain.PatchDigest, error) {
	d.got = patch
	return d.digest, d.err
}

type navigatorStub struct {
	locations []navigate.Location
	symbols   []navigate.Symbol
	err       error
}

func (n *navigatorStub) Definitions(context.Context, string, int, int) ([]navigate.Location, error) {
	return n.locations, n.err
}

func (n *navigatorStub) References(context.Context, string, int, int) ([]navigate.Location, error) {
	return n.locations, n.err
}

func (n *navigatorStub) DocumentSymbols(context.Context, string) ([]navigate.Symbol, error) {
	return n.symbols, n.err
}

func sampleDigest() domain.PatchDigest {
	return domain.PatchDigest{
		{
			OldFile: "a/main.py",
			NewFile: "b/main.py",
			Changes: []domain.LineChange{
				{
					LineIndex: 0,
					Text:      "import os",
					Type:      domain.ChangeAddition,
					Identifiers: []domain.Identifier{
						{Name: "import", CharIndex: 0},
						{Name: "os", CharIndex: 7},
					},
				},
			},
		},
	}
}

func TestPatchDigestRawBody(t *testing.T) {
	digester := &digesterStub{digest: sampleDigest()}
	router := httpapi.NewServer(httpapi.Dependencies{Digester: digester}).Router()

	req := httptest.NewRequest(http.MethodPost, "/patch-digest", strings.NewReader("diff --git a/main.py b/main.py\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diff --git a/main.py b/main.py\n", digester.got)

	var body struct {
		Digest domain.PatchDigest `json:"digest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Digest, 1)
	assert.Equal(t, "b/main.py", body.Digest[0].NewFile)
}

func TestPatchDigestMultipartUpload(t *testing.T) {
	digester := &digesterStub{digest: sampleDigest()}
	router := httpapi.NewServer(httpapi.Dependencies{Digester: digester}).Router()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("patch", "change.patch")
	require.NoError(t, err)
	_, err = part.Write([]byte("diff --git a/x b/x\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/patch-digest", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diff --git a/x b/x\n", digester.got)
}

func TestPatchDigestMalformedIsBadRequest(t *testing.T) {
	digester := &digesterStub{err: diff.ErrMalformedPatch}
	router := httpapi.NewServer(httpapi.Dependencies{Digester: digester}).Router()

	req := httptest.NewRequest(http.MethodPost, "/patch-digest", strings.NewReader("not a patch"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed patch")
}

func TestPatchDigestEmptyBodyIsBadRequest(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{Digester: &digesterStub{}}).Router()

	req := httptest.NewRequest(http.MethodPost, "/patch-digest", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDefinitionsHappyPath(t *testing.T) {
	navigator := &navigatorStub{locations: []navigate.Location{
		{
			URI:          "file:///ws/utils.py",
			AbsolutePath: "/ws/utils.py",
			RelativePath: "utils.py",
			Range: navigate.Range{
				Start: navigate.Position{Line: 3, Character: 4},
				End:   navigate.Position{Line: 3, Character: 11},
			},
		},
	}}
	router := httpapi.NewServer(httpapi.Dependencies{
		Digester:  &digesterStub{},
		Navigator: navigator,
	}).Router()

	req := httptest.NewRequest(http.MethodGet, "/definitions?path=main.py&line=10&character=4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"relativePath":"utils.py"`)
}

func TestDefinitionsEmptyResultEchoesInput(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{
		Digester:  &digesterStub{},
		Navigator: &navigatorStub{},
	}).Router()

	req := httptest.NewRequest(http.MethodGet, "/definitions?path=main.py&line=10&character=4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Message string                 `json:"message"`
		Input   map[string]interface{} `json:"input"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no definitions found", body.Message)
	assert.Equal(t, "main.py", body.Input["path"])
	assert.Equal(t, float64(10), body.Input["line"])
}

func TestReferencesMissingParamsIsBadRequest(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{
		Digester:  &digesterStub{},
		Navigator: &navigatorStub{},
	}).Router()

	for _, target := range []string{
		"/references?line=1&character=2",
		"/references?path=main.py&line=x&character=2",
		"/references?path=main.py&line=1",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSymbolsReportsKindNames(t *testing.T) {
	navigator := &navigatorStub{symbols: []navigate.Symbol{
		{Name: "is_even", Kind: "Function"},
	}}
	router := httpapi.NewServer(httpapi.Dependencies{
		Digester:  &digesterStub{},
		Navigator: navigator,
	}).Router()

	req := httptest.NewRequest(http.MethodGet, "/symbols?path=utils.py", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"Function"`)
}

func TestSymbolsEmptyResultIsNotFound(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{
		Digester:  &digesterStub{},
		Navigator: &navigatorStub{},
	}).Router()

	req := httptest.NewRequest(http.MethodGet, "/symbols?path=utils.py", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"input":{"path":"utils.py"}`)
}

func TestNavigationWithoutLanguageServerIsUnavailable(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{Digester: &digesterStub{}}).Router()

	req := httptest.NewRequest(http.MethodGet, "/symbols?path=utils.py", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{Digester: &digesterStub{}}).Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router := httpapi.NewServer(httpapi.Dependencies{Digester: &digesterStub{}}).Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
