// Command ruffdev watches a Ruff checkout and reruns a build, a rule check or
// a dev command whenever the relevant sources or fixtures change.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ruffdev/cmd/ruffdev/ui"
	"ruffdev/internal/config"
	"ruffdev/internal/resolve"
	"ruffdev/internal/scratch"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root, a := newRootCommand(version, stdout, stderr)
	return run(root, a, args, stderr)
}

func run(root *cobra.Command, a *app, args []string, stderr io.Writer) int {
	defer a.close()

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		printDiagnostic(stderr, ui.NewStyles(stderr), err)
		return 1
	}
	return 0
}

// printDiagnostic renders a fatal error the way the user needs to act on it.
func printDiagnostic(w io.Writer, styles ui.Styles, err error) {
	var wdErr *config.WorkingDirectoryError
	var notFound *resolve.NotFoundError

	switch {
	case errors.As(err, &wdErr):
		lines := []string{styles.Warning.Render("This command must be run from either of the following directories:")}
		for _, c := range wdErr.Candidates {
			lines = append(lines, "* "+c)
		}
		fmt.Fprintln(w, strings.Join(lines, "\n"))

	case errors.As(err, &notFound):
		s := ""
		if len(notFound.Identifiers) > 1 {
			s = "s"
		}
		fmt.Fprintln(w, styles.Error.Render(fmt.Sprintf("Unable to find any fixture file for rule%s ", s))+
			styles.Error.Bold(true).Render(strings.Join(notFound.Identifiers, ", ")))

	case errors.Is(err, scratch.ErrCreationFailed):
		fmt.Fprintln(w, styles.Error.Render("Unable to create playground file: "+err.Error()))

	default:
		fmt.Fprintln(w, styles.Error.Render("Error: "+err.Error()))
	}
}
