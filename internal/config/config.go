// Package config defines the application configuration and its
// file/environment loader.
package config

// Config represents the full application configuration.
type Config struct {
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Tokenizer     TokenizerConfig     `yaml:"tokenizer"`
	Server        ServerConfig        `yaml:"server"`
	LSP           LSPConfig           `yaml:"lsp"`
	Git           GitConfig           `yaml:"git"`
	Store         StoreConfig         `yaml:"store"`
	Output        OutputConfig        `yaml:"output"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// WorkspaceConfig locates the codebase digests and navigation queries
// refer to.
type WorkspaceConfig struct {
	Root     string `yaml:"root"`
	Language string `yaml:"language"` // explicit override, skips detection
}

// TokenizerConfig selects the identifier extractor.
type TokenizerConfig struct {
	Mode string `yaml:"mode"` // lexical, grammar
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LSPConfig configures the language-server bridge. Servers maps a
// language name to the command line that starts its server.
type LSPConfig struct {
	Servers map[string][]string `yaml:"servers"`
	Timeout string              `yaml:"timeout"`
}

// GitConfig locates the repository the digest command diffs.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// StoreConfig configures the run-history persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig configures artifact writing.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, error
	Format string `yaml:"format"` // json, human
}

// Merge overlays configurations left to right: later values win where
// they are set.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Workspace = chooseWorkspace(base.Workspace, overlay.Workspace)
	result.Tokenizer = chooseTokenizer(base.Tokenizer, overlay.Tokenizer)
	result.Server = chooseServer(base.Server, overlay.Server)
	result.LSP = chooseLSP(base.LSP, overlay.LSP)
	result.Git = chooseGit(base.Git, overlay.Git)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)

	return result
}

func chooseWorkspace(base, overlay WorkspaceConfig) WorkspaceConfig {
	result := base
	if overlay.Root != "" {
		result.Root = overlay.Root
	}
	if overlay.Language != "" {
		result.Language = overlay.Language
	}
	return result
}

func chooseTokenizer(base, overlay TokenizerConfig) TokenizerConfig {
	if overlay.Mode != "" {
		return overlay
	}
	return base
}

func chooseServer(base, overlay ServerConfig) ServerConfig {
	if overlay.Addr != "" {
		return overlay
	}
	return base
}

func chooseLSP(base, overlay LSPConfig) LSPConfig {
	result := base
	if len(overlay.Servers) > 0 {
		result.Servers = overlay.Servers
	}
	if overlay.Timeout != "" {
		result.Timeout = overlay.Timeout
	}
	return result
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base
	if overlay.Logging.Level != "" {
		result.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		result.Logging.Format = overlay.Logging.Format
	}
	return result
}
