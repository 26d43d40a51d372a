package command

import (
	"fmt"
	"strings"

	"ruffdev/internal/config"
	"ruffdev/internal/resolve"
)

// Builder produces linter RunSpecs for one project checkout.
type Builder struct {
	target config.LinterTarget
	dir    string
}

// NewBuilder returns a builder for the linter target, running in dir.
func NewBuilder(target config.LinterTarget, dir string) *Builder {
	return &Builder{target: target, dir: dir}
}

// Build turns a resolution into a RunSpec.
//
// An empty resolution yields the build shape. Otherwise the targeted shape is
//
//	<program> <run args> <check args> --select=<ids> (--config=<overlay> | --isolated) <cache args> <passthrough> <paths>
//
// Passthrough arguments are copied verbatim.
func (b *Builder) Build(res resolve.Resolution, passthrough []string) (RunSpec, error) {
	spec := RunSpec{
		Program: b.target.Program,
		Dir:     b.dir,
	}

	if res.Empty() {
		spec.Shape = ShapeBuild
		spec.Args = copyArgs(b.target.BuildArgs)
		return spec, spec.Validate()
	}

	subjects := res.Subjects()
	if len(subjects) == 0 {
		return RunSpec{}, fmt.Errorf("%w: resolution has no subject paths", ErrInvalidRunSpec)
	}

	args := make([]string, 0, len(b.target.RunArgs)+len(b.target.CheckArgs)+len(b.target.CacheArgs)+len(passthrough)+len(subjects)+2)
	args = append(args, b.target.RunArgs...)
	args = append(args, b.target.CheckArgs...)
	args = append(args, SelectionArg(res.Identifiers))

	if res.Playground {
		cfg := res.ConfigPath()
		if cfg == "" {
			return RunSpec{}, fmt.Errorf("%w: playground resolution without a config overlay", ErrInvalidRunSpec)
		}
		args = append(args, "--config="+cfg)
	} else {
		args = append(args, "--isolated")
	}

	args = append(args, b.target.CacheArgs...)
	args = append(args, passthrough...)
	args = append(args, subjects...)

	spec.Shape = ShapeTargeted
	spec.Args = args
	return spec, spec.Validate()
}

// SelectionArg renders the rule selection flag.
func SelectionArg(identifiers []string) string {
	return "--select=" + strings.Join(identifiers, ",")
}

// Fixed builds the RunSpec of a fixed watch target. file, when non-empty, is
// appended as the command's subject.
func Fixed(target config.CommandTarget, dir, file string) (RunSpec, error) {
	if len(target.Command) == 0 {
		return RunSpec{}, fmt.Errorf("%w: target has no command", ErrInvalidRunSpec)
	}
	spec := RunSpec{
		Program: target.Command[0],
		Args:    copyArgs(target.Command[1:]),
		Dir:     dir,
		Shape:   ShapeFixed,
	}
	if file != "" {
		spec.Args = append(spec.Args, file)
	}
	return spec, spec.Validate()
}

func copyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	return out
}
