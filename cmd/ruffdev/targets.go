package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"ruffdev/internal/command"
	"ruffdev/internal/config"
)

func newDocsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Regenerate the documentation whenever its sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFixed(a.cfg.Targets.Docs, "")
			if err != nil {
				return err
			}
			return a.runWatch(cmd.Context(), plan)
		},
	}
}

func newFormatterCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formatter",
		Short: "Rebuild the formatter binary whenever the formatter crate changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFixed(a.cfg.Targets.Formatter, "")
			if err != nil {
				return err
			}
			return a.runWatch(cmd.Context(), plan)
		},
	}
}

func newTokensCommand(a *app) *cobra.Command {
	return newFileTargetCommand(a, "tokens", "Print the tokens of FILE on every change",
		func() config.CommandTarget { return a.cfg.Targets.Tokens })
}

func newASTCommand(a *app) *cobra.Command {
	return newFileTargetCommand(a, "ast", "Print the AST of FILE on every change",
		func() config.CommandTarget { return a.cfg.Targets.AST })
}

// newFileTargetCommand builds a command that runs a fixed target against one
// file. target is read lazily because config is loaded in the pre-run.
func newFileTargetCommand(a *app, name, short string, target func() config.CommandTarget) *cobra.Command {
	var play bool

	cmd := &cobra.Command{
		Use:   name + " [FILE]",
		Short: short,
		Long: short + `.

Without FILE, or with --play, the target's playground file is used and
created empty if it does not exist yet.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			plan, err := a.planFileTarget(target(), file, play)
			if err != nil {
				return err
			}
			return a.runWatch(cmd.Context(), plan)
		},
	}
	cmd.Flags().BoolVarP(&play, "play", "p", false, "Use the playground file even when FILE is given")
	return cmd
}

func (a *app) planFixed(target config.CommandTarget, file string) (*watchPlan, error) {
	spec, err := command.Fixed(target, a.workspace, file)
	if err != nil {
		return nil, err
	}
	set := a.watchPaths(target.Roots)
	if file != "" {
		set = set.With(file)
	}
	return &watchPlan{spec: spec, set: set}, nil
}

func (a *app) planFileTarget(target config.CommandTarget, file string, play bool) (*watchPlan, error) {
	if file == "" || play {
		created, err := a.store.GetOrCreate(target.PlaygroundFile)
		if err != nil {
			return nil, err
		}
		file = created
	} else if !filepath.IsAbs(file) {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		file = abs
	}
	return a.planFixed(target, file)
}
