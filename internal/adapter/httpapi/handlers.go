package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bkyoung/patch-digest/internal/diff"
)

// maxPatchBytes caps the accepted patch body.
const maxPatchBytes = 16 << 20

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePatchDigest accepts a raw unified-diff body, or a multipart
// upload under the "patch" field, and responds with the digest.
func (s *Server) handlePatchDigest(c *gin.Context) {
	patch, err := readPatch(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digest, err := s.deps.Digester.Digest(c.Request.Context(), patch)
	if err != nil {
		if errors.Is(err, diff.ErrMalformedPatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logError(c, "digest failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"digest": digest})
}

func readPatch(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
		file, err := c.FormFile("patch")
		if err != nil {
			return "", errors.New("multipart request missing patch file")
		}
		return readUpload(file)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBytes))
	if err != nil {
		return "", errors.New("unreadable request body")
	}
	if len(body) == 0 {
		return "", errors.New("empty patch body")
	}
	return string(body), nil
}

func readUpload(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", errors.New("unreadable patch upload")
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxPatchBytes))
	if err != nil {
		return "", errors.New("unreadable patch upload")
	}
	return string(body), nil
}

func (s *Server) handleDefinitions(c *gin.Context) {
	navigator, ok := s.navigator(c)
	if !ok {
		return
	}
	path, line, character, ok := positionQuery(c)
	if !ok {
		return
	}

	locations, err := navigator.Definitions(c.Request.Context(), path, line, character)
	if err != nil {
		s.logError(c, "definitions failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(locations) == 0 {
		notFound(c, "no definitions found", gin.H{
			"path": path, "line": line, "character": character,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"definitions": locations})
}

func (s *Server) handleReferences(c *gin.Context) {
	navigator, ok := s.navigator(c)
	if !ok {
		return
	}
	path, line, character, ok := positionQuery(c)
	if !ok {
		return
	}

	locations, err := navigator.References(c.Request.Context(), path, line, character)
	if err != nil {
		s.logError(c, "references failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(locations) == 0 {
		notFound(c, "no references found", gin.H{
			"path": path, "line": line, "character": character,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"references": locations})
}

func (s *Server) handleSymbols(c *gin.Context) {
	navigator, ok := s.navigator(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query parameter is required"})
		return
	}

	symbols, err := navigator.DocumentSymbols(c.Request.Context(), path)
	if err != nil {
		s.logError(c, "symbols failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(symbols) == 0 {
		notFound(c, "no symbols found", gin.H{"path": path})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

// navigator guards the navigation routes: without a configured language
// server they answer 503 rather than panic.
func (s *Server) navigator(c *gin.Context) (Navigator, bool) {
	if s.deps.Navigator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no language server configured"})
		return nil, false
	}
	return s.deps.Navigator, true
}

func positionQuery(c *gin.Context) (path string, line, character int, ok bool) {
	path = c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query parameter is required"})
		return "", 0, 0, false
	}

	var err error
	line, err = strconv.Atoi(c.Query("line"))
	if err != nil || line < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "line must be a non-negative integer"})
		return "", 0, 0, false
	}
	character, err = strconv.Atoi(c.Query("character"))
	if err != nil || character < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character must be a non-negative integer"})
		return "", 0, 0, false
	}
	return path, line, character, true
}

// notFound echoes the query back with the miss, matching the digest
// API's contract for empty navigation results.
func notFound(c *gin.Context, message string, input gin.H) {
	c.JSON(http.StatusNotFound, gin.H{"message": message, "input": input})
}

func (s *Server) logError(c *gin.Context, message string, err error) {
	if s.deps.Logger == nil {
		return
	}
	s.deps.Logger.LogError(c.Request.Context(), message, map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"error":      err.Error(),
	})
}
