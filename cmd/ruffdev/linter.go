package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ruffdev/internal/command"
	"ruffdev/internal/logging"
	"ruffdev/internal/resolve"
	"ruffdev/internal/scratch"
	"ruffdev/internal/watch"
)

func newLinterCommand(a *app) *cobra.Command {
	var (
		rules []string
		play  bool
	)

	cmd := &cobra.Command{
		Use:   "linter [-r RULE]... [-p] [-- RUFF_ARGS...]",
		Short: "Rebuild ruff, or check fixtures for the given rules, on every change",
		Long: `Without rules, rebuilds the ruff binary whenever the linter crates change.

With one or more rules, runs "ruff check --select=RULES" against every
fixture file whose name contains a rule code. With --play, the rules are
checked against scratch files in the playground instead, using the
playground's pyproject.toml. Arguments after "--" are passed to ruff.`,
		Example: `  ruffdev linter
  ruffdev linter -r E501 -r W505
  ruffdev linter -r PYI021 --play
  ruffdev linter -r F401 -- --preview --diff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var passthrough []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				passthrough = args[dash:]
				args = args[:dash]
			}
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %q (ruff arguments go after \"--\")", strings.Join(args, " "))
			}

			plan, err := a.planLinter(rules, play, passthrough)
			if err != nil {
				return err
			}
			return a.runWatch(cmd.Context(), plan)
		},
	}

	cmd.Flags().StringArrayVarP(&rules, "rule", "r", nil, "Rule code to check (repeatable)")
	cmd.Flags().BoolVarP(&play, "play", "p", false, "Check scratch files in the playground instead of fixtures")
	return cmd
}

// planLinter resolves the rules and builds the linter run.
func (a *app) planLinter(rules []string, play bool, passthrough []string) (*watchPlan, error) {
	target := a.cfg.Targets.Linter

	resolver := resolve.New(resolve.Options{
		FixturesRoot: a.cfg.FixturesRoot(a.workspace),
		SourceDir:    a.cfg.Playground.SourceDir,
		Extensions: resolve.ExtensionPolicy{
			Default:  a.cfg.Project.DefaultExtension,
			ByPrefix: a.cfg.Project.PrefixExtensions,
		},
	}, a.store, a.log.Get(logging.CategoryResolve))

	res, err := resolver.Resolve(resolve.Query{Identifiers: rules, Playground: play})
	if err != nil {
		return nil, err
	}
	if len(res.Unmatched) > 0 {
		fmt.Fprintln(a.stderr, a.styles.Warning.Render(
			"No fixture file found for "+strings.Join(res.Unmatched, ", ")))
	}

	spec, err := command.NewBuilder(target, a.workspace).Build(res, passthrough)
	if err != nil {
		return nil, err
	}
	a.log.Get(logging.CategoryCommand).Debug("linter command built",
		zap.Stringer("shape", spec.Shape),
		zap.Strings("argv", spec.Argv()))

	plan := &watchPlan{
		spec: spec,
		set:  a.watchPaths(target.Roots).With(res.All()...),
	}
	if cfgPath := res.ConfigPath(); cfgPath != "" {
		plan.beforeRun = a.overlayCheck(cfgPath)
	}
	return plan, nil
}

// overlayCheck warns before a run when the playground config no longer parses.
func (a *app) overlayCheck(path string) func(watch.Trigger) {
	return func(watch.Trigger) {
		if err := scratch.CheckConfig(path); err != nil {
			fmt.Fprintln(a.stderr, a.styles.Warning.Render("Invalid playground config: "+err.Error()))
		}
	}
}
