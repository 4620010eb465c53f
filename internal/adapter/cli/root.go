// Package cli wires the digest engine, the git patcher, and the HTTP
// server into the pd command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bkyoung/patch-digest/internal/domain"
	"github.com/bkyoung/patch-digest/internal/usecase/digest"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Digester defines the dependency required to run the digest command.
type Digester interface {
	Digest(ctx context.Context, patch string) (domain.PatchDigest, error)
}

// Patcher produces a patch from a local repository when no patch file
// is supplied.
type Patcher interface {
	Patch(ctx context.Context, baseRef, targetRef string, includeUncommitted bool) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// HistoryLister lists recorded digest runs for the history command.
type HistoryLister interface {
	RecentRuns(ctx context.Context, limit int) ([]digest.Run, error)
}

// Server runs the HTTP API for the serve command.
type Server interface {
	Run(ctx context.Context, addr string) error
}

// WriterFunc persists a digest artifact and returns its path.
type WriterFunc func(ctx context.Context, d domain.PatchDigest, outputDir, label string) (string, error)

// Arguments encapsulates IO streams injected from the host process.
type Arguments struct {
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Digester      Digester
	Patcher       Patcher // optional, digest --base/--target needs it
	History       HistoryLister
	HTTPServer    Server
	WriteJSON     WriterFunc
	WriteMarkdown WriterFunc
	Args          Arguments
	DefaultOutput string
	DefaultAddr   string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "pd",
		Short: "Diff-patch digest CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	inReader := deps.Args.InReader
	if inReader == nil {
		inReader = os.Stdin
	}
	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetIn(inReader)
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(digestCommand(deps))
	root.AddCommand(serveCommand(deps))
	root.AddCommand(historyCommand(deps))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func digestCommand(deps Dependencies) *cobra.Command {
	var baseRef string
	var targetRef string
	var includeUncommitted bool
	var format string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "digest [patchfile]",
		Short: "Digest a unified-diff patch into annotated line changes",
		Long: `Digest a unified-diff patch into per-file added and removed lines,
each annotated with the identifiers it contains. The patch is read from
the given file, from stdin, or produced from the local repository when
--target is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			patch, label, err := resolvePatch(cmd, args, deps.Patcher, baseRef, targetRef, includeUncommitted)
			if err != nil {
				return err
			}

			result, err := deps.Digester.Digest(ctx, patch)
			if err != nil {
				return err
			}

			if outputDir == "" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}

			writer, err := selectWriter(deps, format)
			if err != nil {
				return err
			}
			path, err := writer(ctx, result, outputDir, label)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "main", "Base reference to diff against (with --target)")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target branch to diff instead of reading a patch")
	cmd.Flags().BoolVar(&includeUncommitted, "include-uncommitted", false, "Include uncommitted changes when diffing refs")
	cmd.Flags().StringVar(&format, "format", "json", "Artifact format: json or markdown")
	cmd.Flags().StringVar(&outputDir, "output", deps.DefaultOutput, "Directory to write the digest artifact; empty prints JSON to stdout")

	return cmd
}

// resolvePatch picks the patch source: an explicit file, the repository
// refs, or stdin, in that order.
func resolvePatch(cmd *cobra.Command, args []string, patcher Patcher, baseRef, targetRef string, includeUncommitted bool) (patch, label string, err error) {
	if len(args) > 0 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("read patch file: %w", err)
		}
		return string(raw), args[0], nil
	}

	if targetRef != "" || includeUncommitted {
		if patcher == nil {
			return "", "", fmt.Errorf("no repository configured; pass a patch file or set git.repositoryDir")
		}
		if targetRef == "" {
			targetRef, err = patcher.CurrentBranch(cmd.Context())
			if err != nil {
				return "", "", fmt.Errorf("detect target branch: %w", err)
			}
		}
		patch, err = patcher.Patch(cmd.Context(), baseRef, targetRef, includeUncommitted)
		if err != nil {
			return "", "", err
		}
		return patch, targetRef, nil
	}

	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", "", fmt.Errorf("read patch from stdin: %w", err)
	}
	if len(raw) == 0 {
		return "", "", fmt.Errorf("no patch supplied; pass a file, pipe one to stdin, or use --target")
	}
	return string(raw), "stdin", nil
}

func selectWriter(deps Dependencies, format string) (WriterFunc, error) {
	switch format {
	case "json", "":
		if deps.WriteJSON == nil {
			return nil, fmt.Errorf("json writer not configured")
		}
		return deps.WriteJSON, nil
	case "markdown", "md":
		if deps.WriteMarkdown == nil {
			return nil, fmt.Errorf("markdown writer not configured")
		}
		return deps.WriteMarkdown, nil
	default:
		return nil, fmt.Errorf("unknown format %q; expected json or markdown", format)
	}
}

func serveCommand(deps Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the digest and navigation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.HTTPServer == nil {
				return fmt.Errorf("http server not configured")
			}
			return deps.HTTPServer.Run(cmd.Context(), addr)
		},
	}

	defaultAddr := deps.DefaultAddr
	if defaultAddr == "" {
		defaultAddr = ":8080"
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "Address to listen on")

	return cmd
}

func historyCommand(deps Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent digest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.History == nil {
				return fmt.Errorf("run history is disabled; enable store in the configuration")
			}

			runs, err := deps.History.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no digest runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "CREATED\tID\tTOKENIZER\tFILES\tADDED\tREMOVED\tDURATION")
			for _, run := range runs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					run.CreatedAt.Format("2006-01-02 15:04:05"),
					run.ID,
					run.Tokenizer,
					run.FileCount,
					run.Additions,
					run.Deletions,
					run.Duration,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}
