package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxrank/internal/indexer"
	"github.com/dshills/ctxrank/internal/mcp"
	"github.com/dshills/ctxrank/internal/storage"
	"github.com/dshills/ctxrank/internal/workspace"
)

// progressInterval is how often index prints progress
const progressInterval = time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			ws, logger, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}

			logger.Info("ctxrank MCP server starting",
				"version", version,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName,
				"provider", ws.Embedder.Provider(),
				"model", ws.Embedder.Model())

			server := mcp.NewServer(ws, logger)

			errChan := make(chan error, 1)
			go func() {
				logger.Info("MCP server ready, listening on stdio")
				errChan <- server.Serve(ctx)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			case err := <-errChan:
				return err
			}
		},
	}
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a directory and persist its embeddings",
		Long: `Indexes every matching file below dir. Embeddings are cached, so
re-running index only embeds files that changed. With --watch the
directory is re-indexed whenever a file changes, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			ws, _, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer ws.Close()

			corpus, err := ws.Corpus(root)
			if err != nil {
				return fmt.Errorf("%s: %w", root, err)
			}

			stats, err := runWithProgress(ctx, cmd, ws, corpus)
			if err != nil {
				return err
			}
			printStatistics(cmd, stats)

			if !watch || stats.Status == indexer.StatusCancelled {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", root)
			return ws.Indexer.Watch(ctx, corpus, ws.BuildOptions(), ws.Config.Indexer.Debounce())
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-index when files change")
	return cmd
}

// runWithProgress starts a build and prints its progress to stderr until it ends
func runWithProgress(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, corpus indexer.DirCorpus) (*indexer.Statistics, error) {
	if _, err := ws.Indexer.Start(ctx, corpus, ws.BuildOptions()); err != nil {
		return nil, err
	}

	type result struct {
		stats *indexer.Statistics
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := ws.Indexer.Wait(context.Background())
		done <- result{stats, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			return r.stats, r.err
		case <-ticker.C:
			fmt.Fprintln(cmd.ErrOrStderr(), ws.Indexer.ProgressText())
		case <-ctx.Done():
			ws.Indexer.Cancel()
			ctx = context.Background()
		}
	}
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		opts    outputOptions
		include []string
	)

	cmd := &cobra.Command{
		Use:   "search <dir> <query>",
		Short: "Rank the files of a directory against a query",
		Long: `Indexes dir (reusing cached embeddings) and ranks its files against
query using vector similarity plus file name and keyword matches.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			ws, root, err := buildForQuery(ctx, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			resp, err := ws.Facade.Search(ctx, args[1], relativePaths(root, include))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printResponse(cmd, resp, opts)
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "only rank these files")
	opts.register(cmd)
	return cmd
}

func newRelatedCmd(flags *globalFlags) *cobra.Command {
	var (
		opts   outputOptions
		prompt string
		files  []string
	)

	cmd := &cobra.Command{
		Use:   "related <dir>",
		Short: "Suggest files related to a prompt and to files already selected",
		Long: `Indexes dir (reusing cached embeddings) and suggests files related to
--prompt, to the --file selections, or to both. Selected files are never
suggested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" && len(files) == 0 {
				return errors.New("--prompt or --file is required")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			ws, root, err := buildForQuery(ctx, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			resp, err := ws.Facade.Suggest(ctx, prompt, relativePaths(root, files))
			if err != nil {
				return fmt.Errorf("suggestion failed: %w", err)
			}
			return printResponse(cmd, resp, opts)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "what you are working on")
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "files already selected (repeatable)")
	opts.register(cmd)
	return cmd
}

// buildForQuery opens a workspace and brings the index of dir up to date
func buildForQuery(ctx context.Context, flags *globalFlags, dir string) (*workspace.Workspace, string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}

	ws, _, err := openWorkspace(ctx, flags)
	if err != nil {
		return nil, "", err
	}

	stats, err := ws.Build(ctx, root)
	if err != nil {
		_ = ws.Close()
		return nil, "", fmt.Errorf("%s: %w", root, err)
	}
	if stats.Status == indexer.StatusCancelled {
		_ = ws.Close()
		return nil, "", context.Canceled
	}
	return ws, root, nil
}

// relativePaths turns user-supplied paths into document IDs under root
func relativePaths(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(root, p); err == nil {
				p = rel
			}
		}
		out = append(out, filepath.ToSlash(filepath.Clean(p)))
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ctxrank version %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}
