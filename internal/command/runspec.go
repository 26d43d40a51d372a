// Package command assembles the argument vectors ruffdev hands to the process
// boundary. Nothing here touches the filesystem or spawns anything.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrInvalidRunSpec is returned by RunSpec.Validate.
var ErrInvalidRunSpec = errors.New("invalid run spec")

// Shape tells which kind of command a RunSpec is.
type Shape int

const (
	// ShapeBuild compiles without a subject; used when nothing was resolved.
	ShapeBuild Shape = iota
	// ShapeTargeted runs against resolved paths.
	ShapeTargeted
	// ShapeFixed is a fixed watch target (docs, formatter, tokens, ast).
	ShapeFixed
)

func (s Shape) String() string {
	switch s {
	case ShapeBuild:
		return "build"
	case ShapeTargeted:
		return "targeted"
	case ShapeFixed:
		return "fixed"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// RunSpec is a fully assembled command. Treat it as immutable once built.
type RunSpec struct {
	Program string
	Args    []string
	// Dir is the working directory of the child process.
	Dir string
	// Env holds extra KEY=VALUE entries on top of the parent environment.
	Env   []string
	Shape Shape
}

// Argv returns program followed by its arguments.
func (s RunSpec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Program)
	return append(argv, s.Args...)
}

// String renders the command as a shell-quoted line for display only.
func (s RunSpec) String() string {
	return shellquote.Join(s.Argv()...)
}

// Validate checks the spec can be handed to the process boundary.
func (s RunSpec) Validate() error {
	if strings.TrimSpace(s.Program) == "" {
		return fmt.Errorf("%w: empty program", ErrInvalidRunSpec)
	}
	if strings.ContainsRune(s.Program, 0) {
		return fmt.Errorf("%w: program contains a NUL byte", ErrInvalidRunSpec)
	}
	for i, arg := range s.Args {
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("%w: argument %d contains a NUL byte", ErrInvalidRunSpec, i)
		}
	}
	for _, kv := range s.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			return fmt.Errorf("%w: malformed environment entry %q", ErrInvalidRunSpec, kv)
		}
	}
	return nil
}
