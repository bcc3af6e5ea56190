package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxrank/internal/config"
	"github.com/dshills/ctxrank/internal/workspace"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	cacheDir   string
	provider   string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "ctxrank",
		Short: "Semantic search and related-file suggestions over a directory",
		Long: `ctxrank indexes a directory with embeddings and ranks its files against
a prompt, the files already selected, or both. It runs as an MCP server
(ctxrank serve) or directly from the command line.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $CTXRANK_CONFIG or ~/.ctxrank/config.toml)")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "embedding cache directory")
	root.PersistentFlags().StringVar(&flags.provider, "provider", "", "embedding provider (jina, openai, ollama, local)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newIndexCmd(flags),
		newSearchCmd(flags),
		newRelatedCmd(flags),
		newVersionCmd(),
	)

	return root
}

// newLogger logs to stderr; stdout is reserved for the MCP protocol and results
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the configuration file, then applies command line overrides
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.cacheDir == "" && flags.provider == "" {
		return cfg, nil
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}
	if flags.provider != "" {
		cfg.UseProvider(flags.provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openWorkspace loads the configuration and opens a workspace with it
func openWorkspace(ctx context.Context, flags *globalFlags) (*workspace.Workspace, *slog.Logger, error) {
	logger := newLogger(flags.verbose)
	slog.SetDefault(logger)

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	ws, err := workspace.Open(ctx, cfg, workspace.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return ws, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
