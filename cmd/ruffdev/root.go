package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ruffdev/cmd/ruffdev/ui"
	"ruffdev/internal/config"
	"ruffdev/internal/logging"
	"ruffdev/internal/scratch"
)

// skipWorkspaceCheck marks commands that run anywhere.
const skipWorkspaceCheck = "ruffdev/skip-workspace-check"

// app is the state every sub-command works from. It is built once in the
// root's pre-run and passed down explicitly.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// flags
	configPath    string
	workspaceFlag string
	verbose       bool

	cfg       *config.Config
	log       *logging.Logger
	workspace string
	store     *scratch.Store
	styles    ui.Styles
}

// newRootCommand returns the CLI and the app state its commands share. The
// caller owns the app and must close it once the command has returned.
func newRootCommand(version string, stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "ruffdev",
		Short: "Watch-and-rerun helper for Ruff development",
		Long: `ruffdev watches a Ruff checkout and reruns a command whenever the
relevant crates, fixtures or playground files change. A change while a run is
still in progress stops that run and starts a fresh one.

It must be started from one of the configured project directories.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipWorkspaceCheck] == "true" {
				return nil
			}
			return a.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.workspaceFlag, "workspace", "w", "", "Project directory (default: current)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: "+config.DefaultConfigPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newLinterCommand(a),
		newDocsCommand(a),
		newFormatterCommand(a),
		newTokensCommand(a),
		newASTCommand(a),
		newVersionCommand(version),
	)
	return root, a
}

// close flushes and releases the logger. It is safe to call when init never ran.
func (a *app) close() {
	if a.log == nil {
		return
	}
	a.log.Close()
	a.log = nil
}

// init loads config, builds the logger and validates the working directory.
func (a *app) init() error {
	a.styles = ui.NewStyles(a.stderr)

	dir := a.workspaceFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	path := a.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path, filepath.Join(dir, ".env"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger
	boot := logger.Get(logging.CategoryBoot)
	boot.Debug("config loaded", zap.String("path", path))

	workspace, err := cfg.ResolveWorkspace(dir)
	if err != nil {
		return err
	}
	a.workspace = workspace
	boot.Debug("workspace resolved", zap.String("workspace", workspace))

	a.store = scratch.New(cfg.PlaygroundRoot(), cfg.Playground.ConfigFile, logger.Get(logging.CategoryScratch))
	a.store.SetCreateCallback(func(p string) {
		fmt.Fprintln(a.stderr, "Creating "+a.styles.Success.Render(p)+"...")
	})
	return nil
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the ruffdev version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipWorkspaceCheck: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ruffdev %s\n", version)
		},
	}
}
