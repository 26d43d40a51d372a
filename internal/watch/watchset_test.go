package watch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWatchSet(t *testing.T) {
	base := t.TempDir()

	set := NewWatchSet(base,
		"crates/ruff_linter",
		"crates/ruff_cache",
		"crates/ruff_linter/",
		"",
		filepath.Join(base, "crates", "ruff_cache"),
	)

	assert.Equal(t, []string{
		filepath.Join(base, "crates", "ruff_linter"),
		filepath.Join(base, "crates", "ruff_cache"),
	}, set.Paths())
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(filepath.Join(base, "crates", "ruff_linter")))
	assert.False(t, set.Contains(filepath.Join(base, "crates")))
}

func TestWatchSetWith(t *testing.T) {
	base := t.TempDir()
	roots := NewWatchSet(base, "crates/ruff_linter")

	fixture := filepath.Join(base, "crates", "ruff_linter", "resources", "E501.py")
	extended := roots.With(fixture, fixture)

	assert.Equal(t, 1, roots.Len(), "With must not mutate the receiver")
	assert.Equal(t, []string{filepath.Join(base, "crates", "ruff_linter"), fixture}, extended.Paths())
}

func TestWatchSetPathsIsACopy(t *testing.T) {
	set := NewWatchSet(t.TempDir(), "a")
	paths := set.Paths()
	paths[0] = "mutated"
	assert.NotEqual(t, "mutated", set.Paths()[0])
}

func TestZeroWatchSet(t *testing.T) {
	var set WatchSet
	assert.Zero(t, set.Len())
	assert.False(t, set.Contains("/anything"))
	assert.Empty(t, set.Paths())
}
