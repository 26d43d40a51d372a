package command

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruffdev/internal/config"
	"ruffdev/internal/resolve"
)

func linterTarget() config.LinterTarget {
	return config.DefaultConfig().Targets.Linter
}

func fixtureResolution(ids []string, paths ...string) resolve.Resolution {
	res := resolve.Resolution{Identifiers: ids}
	for _, p := range paths {
		res.Paths = append(res.Paths, resolve.ResolvedPath{Path: p, Provenance: resolve.Fixture, Identifier: ids[0]})
	}
	return res
}

func TestBuild_BuildShapeOnEmptyResolution(t *testing.T) {
	spec, err := NewBuilder(linterTarget(), "/src/ruff").Build(resolve.Resolution{}, []string{"--preview"})
	require.NoError(t, err)

	assert.Equal(t, ShapeBuild, spec.Shape)
	assert.Equal(t, "/src/ruff", spec.Dir)
	assert.Equal(t, []string{"cargo", "build", "--all-features", "--bin=ruff", "--package=ruff"}, spec.Argv())
}

func TestBuild_TargetedIsolated(t *testing.T) {
	first := filepath.FromSlash("/fixtures/pycodestyle/E501_1.py")
	second := filepath.FromSlash("/fixtures/pycodestyle/E501_2.py")
	res := fixtureResolution([]string{"E501"}, first, second)

	spec, err := NewBuilder(linterTarget(), "/src/ruff").Build(res, nil)
	require.NoError(t, err)

	assert.Equal(t, ShapeTargeted, spec.Shape)
	assert.Equal(t, []string{
		"cargo", "run", "--all-features", "--bin=ruff", "--package=ruff", "--",
		"check", "--select=E501", "--isolated", "--no-cache",
		first, second,
	}, spec.Argv())
}

func TestBuild_TargetedPlaygroundUsesConfigOverlay(t *testing.T) {
	res := resolve.Resolution{
		Identifiers: []string{"E501", "W291"},
		Playground:  true,
		Paths: []resolve.ResolvedPath{
			{Path: "/play/src/E501.py", Provenance: resolve.Scratch, Identifier: "E501"},
			{Path: "/play/src/W291.py", Provenance: resolve.Scratch, Identifier: "W291"},
			{Path: "/play/pyproject.toml", Provenance: resolve.Config},
		},
	}

	spec, err := NewBuilder(linterTarget(), "/src/ruff").Build(res, []string{"--fix", "--diff"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run", "--all-features", "--bin=ruff", "--package=ruff", "--",
		"check", "--select=E501,W291", "--config=/play/pyproject.toml", "--no-cache",
		"--fix", "--diff",
		"/play/src/E501.py", "/play/src/W291.py",
	}, spec.Args)
	assert.NotContains(t, spec.Args, "--isolated")
}

func TestBuild_PlaygroundWithoutOverlayIsRejected(t *testing.T) {
	res := resolve.Resolution{
		Identifiers: []string{"E501"},
		Playground:  true,
		Paths:       []resolve.ResolvedPath{{Path: "/play/src/E501.py", Provenance: resolve.Scratch}},
	}
	_, err := NewBuilder(linterTarget(), "").Build(res, nil)
	assert.ErrorIs(t, err, ErrInvalidRunSpec)
}

func TestBuild_PassthroughIsVerbatim(t *testing.T) {
	res := fixtureResolution([]string{"E501"}, "/f/E501.py")
	passthrough := []string{"--select", "ALL; rm -rf /", "$(echo hi)"}

	spec, err := NewBuilder(linterTarget(), "").Build(res, passthrough)
	require.NoError(t, err)

	n := len(spec.Args)
	assert.Equal(t, passthrough, spec.Args[n-4:n-1])
	assert.Equal(t, "/f/E501.py", spec.Args[n-1])
}

func TestBuild_DoesNotAliasInputs(t *testing.T) {
	target := linterTarget()
	res := fixtureResolution([]string{"E501"}, "/f/E501.py")
	passthrough := []string{"--fix"}

	spec, err := NewBuilder(target, "").Build(res, passthrough)
	require.NoError(t, err)

	spec.Args[0] = "mutated"
	passthrough[0] = "--changed"
	assert.Equal(t, "run", target.RunArgs[0])
	assert.Contains(t, spec.Args, "--fix")
}

func TestBuild_NeverTouchesTheFilesystem(t *testing.T) {
	res := fixtureResolution([]string{"E501"}, "/does/not/exist/E501.py")
	_, err := NewBuilder(linterTarget(), "/nowhere").Build(res, nil)
	assert.NoError(t, err)
}

func TestFixed(t *testing.T) {
	cfg := config.DefaultConfig()

	spec, err := Fixed(cfg.Targets.Tokens, "/src/ruff", "/play/src/tokens.py")
	require.NoError(t, err)
	assert.Equal(t, ShapeFixed, spec.Shape)
	assert.Equal(t, []string{"cargo", "dev", "print-tokens", "/play/src/tokens.py"}, spec.Argv())

	spec, err = Fixed(cfg.Targets.Docs, "/src/ruff", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "scripts/generate_mkdocs.py"}, spec.Argv())

	_, err = Fixed(config.CommandTarget{}, "", "")
	assert.ErrorIs(t, err, ErrInvalidRunSpec)
}

func TestRunSpecValidate(t *testing.T) {
	cases := []struct {
		name string
		spec RunSpec
		ok   bool
	}{
		{"valid", RunSpec{Program: "cargo", Args: []string{"build"}, Env: []string{"RUST_LOG=debug"}}, true},
		{"empty program", RunSpec{Program: "  "}, false},
		{"nul in program", RunSpec{Program: "car\x00go"}, false},
		{"nul in arg", RunSpec{Program: "cargo", Args: []string{"bu\x00ild"}}, false},
		{"bad env", RunSpec{Program: "cargo", Env: []string{"NOVALUE"}}, false},
		{"env without key", RunSpec{Program: "cargo", Env: []string{"=x"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidRunSpec))
		})
	}
}

func TestRunSpecString(t *testing.T) {
	spec := RunSpec{Program: "cargo", Args: []string{"run", "--", "check", "/tmp/my file.py", "it's"}}

	words, err := shellquote.Split(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec.Argv(), words)
	assert.Equal(t, "cargo run -- check", spec.String()[:len("cargo run -- check")])
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "build", ShapeBuild.String())
	assert.Equal(t, "targeted", ShapeTargeted.String())
	assert.Equal(t, "fixed", ShapeFixed.String())
}

func TestSelectionArg(t *testing.T) {
	assert.Equal(t, "--select=E501", SelectionArg([]string{"E501"}))
	assert.Equal(t, "--select=E501,PYI001", SelectionArg([]string{"E501", "PYI001"}))
}
