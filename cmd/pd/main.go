package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/patch-digest/internal/adapter/cli"
	"github.com/bkyoung/patch-digest/internal/adapter/git"
	"github.com/bkyoung/patch-digest/internal/adapter/httpapi"
	"github.com/bkyoung/patch-digest/internal/adapter/language"
	"github.com/bkyoung/patch-digest/internal/adapter/lsp"
	"github.com/bkyoung/patch-digest/internal/adapter/observability"
	outjson "github.com/bkyoung/patch-digest/internal/adapter/output/json"
	"github.com/bkyoung/patch-digest/internal/adapter/output/markdown"
	"github.com/bkyoung/patch-digest/internal/adapter/store/sqlite"
	"github.com/bkyoung/patch-digest/internal/config"
	"github.com/bkyoung/patch-digest/internal/domain"
	"github.com/bkyoung/patch-digest/internal/token"
	"github.com/bkyoung/patch-digest/internal/usecase/digest"
	"github.com/bkyoung/patch-digest/internal/usecase/navigate"
	"github.com/bkyoung/patch-digest/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "pd",
		EnvPrefix:   "PD",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := observability.NewLogger(
		observability.ParseLevel(cfg.Observability.Logging.Level),
		observability.ParseFormat(cfg.Observability.Logging.Format),
	)

	workspaceRoot, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}

	detector := &language.Detector{Override: cfg.Workspace.Language}
	lang, err := detector.Detect(workspaceRoot)
	if err != nil {
		logger.LogWarning(ctx, "language detection failed", map[string]interface{}{
			"root":  workspaceRoot,
			"error": err.Error(),
		})
	}
	if lang != "" {
		logger.LogDebug(ctx, "workspace language resolved", map[string]interface{}{"language": lang})
	}

	extractor, tokenizerName := buildExtractor(ctx, cfg.Tokenizer.Mode, lang, logger)

	var runStore *sqlite.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			logger.LogWarning(ctx, "failed to create store directory", map[string]interface{}{"error": err.Error()})
		} else if runStore, err = sqlite.NewStore(cfg.Store.Path); err != nil {
			logger.LogWarning(ctx, "failed to initialize store", map[string]interface{}{"error": err.Error()})
			runStore = nil
		} else {
			defer runStore.Close()
		}
	}

	digestDeps := digest.Deps{
		Extractor: extractor,
		Tokenizer: tokenizerName,
		Logger:    logger,
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
	if runStore != nil {
		digestDeps.Store = runStore
	}
	digester := digest.NewService(digestDeps)

	var patcher cli.Patcher
	if repoDir := cfg.Git.RepositoryDir; repoDir != "" {
		patcher = git.NewEngine(repoDir)
	} else {
		patcher = git.NewEngine(".")
	}

	// Timestamp function for artifact file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}
	jsonWriter := outjson.NewWriter(nowFunc)
	markdownWriter := markdown.NewWriter(nowFunc)

	deps := cli.Dependencies{
		Digester: digester,
		Patcher:  patcher,
		HTTPServer: &serverRunner{
			cfg:           cfg,
			workspaceRoot: workspaceRoot,
			language:      lang,
			logger:        logger,
			digester:      digester,
		},
		WriteJSON: func(ctx context.Context, d domain.PatchDigest, outputDir, label string) (string, error) {
			return jsonWriter.Write(ctx, outjson.Artifact{Digest: d, OutputDir: outputDir, Label: label})
		},
		WriteMarkdown: func(ctx context.Context, d domain.PatchDigest, outputDir, label string) (string, error) {
			return markdownWriter.Write(ctx, markdown.Artifact{Digest: d, OutputDir: outputDir, Label: label})
		},
		DefaultOutput: cfg.Output.Directory,
		DefaultAddr:   cfg.Server.Addr,
		Version:       version.Value(),
	}
	if runStore != nil {
		deps.History = runStore
	}

	root := cli.NewRootCommand(deps)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// buildExtractor selects the identifier extractor. Grammar mode needs a
// supported workspace language; anything else falls back to the lexical
// scanner.
func buildExtractor(ctx context.Context, mode, lang string, logger *observability.Logger) (token.Extractor, string) {
	switch mode {
	case "grammar":
		if token.HasGrammar(lang) {
			return token.ForLanguage(lang), "grammar"
		}
		logger.LogWarning(ctx, "no grammar for workspace language, using lexical tokenizer", map[string]interface{}{
			"language": lang,
		})
		return token.Lexical{}, "lexical"
	case "lexical", "":
		return token.Lexical{}, "lexical"
	default:
		logger.LogWarning(ctx, "unknown tokenizer mode, using lexical", map[string]interface{}{"mode": mode})
		return token.Lexical{}, "lexical"
	}
}

// serverRunner assembles the HTTP API at serve time, so the language
// server is only spawned when the API actually runs.
type serverRunner struct {
	cfg           config.Config
	workspaceRoot string
	language      string
	logger        *observability.Logger
	digester      *digest.Service
}

func (r *serverRunner) Run(ctx context.Context, addr string) error {
	var navigator httpapi.Navigator

	if command, ok := r.cfg.LSP.Servers[r.language]; ok && len(command) > 0 {
		client := lsp.NewClient(lsp.Config{
			Command:       command,
			LanguageID:    r.language,
			WorkspaceRoot: r.workspaceRoot,
			Logger:        r.logger,
		})
		if err := client.Start(ctx); err != nil {
			r.logger.LogWarning(ctx, "language server unavailable, navigation routes disabled", map[string]interface{}{
				"language": r.language,
				"error":    err.Error(),
			})
		} else {
			defer func() {
				if err := client.Stop(); err != nil {
					r.logger.LogWarning(ctx, "language server shutdown", map[string]interface{}{"error": err.Error()})
				}
			}()
			navigator = navigate.NewService(navigate.Deps{
				Bridge:  client,
				Logger:  r.logger,
				Timeout: parseTimeout(r.cfg.LSP.Timeout),
			})
		}
	} else {
		r.logger.LogInfo(ctx, "no language server configured, navigation routes disabled", map[string]interface{}{
			"language": r.language,
		})
	}

	server := httpapi.NewServer(httpapi.Dependencies{
		Digester:  r.digester,
		Navigator: navigator,
		Logger:    r.logger,
	})

	r.logger.LogInfo(ctx, "serving http api", map[string]interface{}{"addr": addr})
	return server.Run(ctx, addr)
}

func parseTimeout(value string) time.Duration {
	if value == "" {
		return 0
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return parsed
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pd"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ cli.Digester = (*digest.Service)(nil)
var _ cli.Patcher = (*git.Engine)(nil)
var _ cli.HistoryLister = (*sqlite.Store)(nil)
var _ cli.Server = (*serverRunner)(nil)
var _ httpapi.Digester = (*digest.Service)(nil)
var _ httpapi.Navigator = (*navigate.Service)(nil)
var _ httpapi.Logger = (*observability.Logger)(nil)
var _ navigate.Bridge = (*lsp.Client)(nil)
var _ navigate.Logger = (*observability.Logger)(nil)
var _ digest.Store = (*sqlite.Store)(nil)
var _ digest.Logger = (*observability.Logger)(nil)
var _ lsp.Logger = (*observability.Logger)(nil)
