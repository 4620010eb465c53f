// Package httpapi exposes the digest engine and the navigation service
// over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bkyoung/patch-digest/internal/domain"
	"github.com/bkyoung/patch-digest/internal/usecase/navigate"
)

// Digester defines the inbound digest operation the API serves.
type Digester interface {
	Digest(ctx context.Context, patch string) (domain.PatchDigest, error)
}

// Navigator defines the inbound navigation operations the API serves.
// It is optional: when no language server is configured the navigation
// routes answer 503.
type Navigator interface {
	Definitions(ctx context.Context, path string, line, character int) ([]navigate.Location, error)
	References(ctx context.Context, path string, line, character int) ([]navigate.Location, error)
	DocumentSymbols(ctx context.Context, path string) ([]navigate.Symbol, error)
}

// Logger defines the outbound port for structured logging.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// Dependencies captures the collaborators for the HTTP server.
type Dependencies struct {
	Digester  Digester
	Navigator Navigator // optional
	Logger    Logger    // optional
}

// Server serves the HTTP API.
type Server struct {
	deps Dependencies
}

// NewServer constructs a server around its collaborators.
func NewServer(deps Dependencies) *Server {
	return &Server{deps: deps}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), s.loggingMiddleware())

	router.GET("/healthz", s.handleHealthz)
	router.POST("/patch-digest", s.handlePatchDigest)
	router.GET("/definitions", s.handleDefinitions)
	router.GET("/references", s.handleReferences)
	router.GET("/symbols", s.handleSymbols)

	return router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- server.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
