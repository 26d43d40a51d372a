package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "cargo", cfg.Targets.Linter.Program)
	assert.Equal(t, "pyi", cfg.Project.PrefixExtensions["PYI"])
	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.Equal(t, 2*time.Second, cfg.GetGracePeriod())
	assert.Contains(t, cfg.Targets.Linter.Roots, "crates/ruff_linter")
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("RUFFDEV_PLAYGROUND", "")
	t.Setenv("RUFFDEV_DEBOUNCE", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Playground.Root = "/tmp/play"
	cfg.Watch.Debounce = "1s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/play", loaded.Playground.Root)
	assert.Equal(t, time.Second, loaded.GetDebounce())
	assert.Equal(t, cfg.Targets.Linter.RunArgs, loaded.Targets.Linter.RunArgs)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Project.FixturesDir, cfg.Project.FixturesDir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_EnvFileFeedsOverrides(t *testing.T) {
	t.Setenv("RUFFDEV_GRACE_PERIOD", "")
	os.Unsetenv("RUFFDEV_GRACE_PERIOD")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RUFFDEV_GRACE_PERIOD=750ms\n"), 0644))

	cfg, err := Load(filepath.Join(dir, "config.yaml"), envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.GetGracePeriod())
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RUFFDEV_PROJECT", "/src/ruff")
	t.Setenv("RUFFDEV_PLAYGROUND", "/tmp/playground")
	t.Setenv("RUFFDEV_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, []string{"/src/ruff"}, cfg.Project.Candidates)
	assert.Equal(t, "/tmp/playground", cfg.Playground.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("bad debounce", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Watch.Debounce = "soon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative grace period", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Watch.GracePeriod = "-1s"
		assert.Error(t, cfg.Validate())
	})

	t.Run("no candidates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Project.Candidates = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing target command", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Targets.Docs.Command = nil
		assert.Error(t, cfg.Validate())
	})
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Watch.Debounce = "garbage"
	cfg.Watch.GracePeriod = ""
	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.Equal(t, 2*time.Second, cfg.GetGracePeriod())
}

func TestResolveWorkspace(t *testing.T) {
	project := t.TempDir()
	other := t.TempDir()

	cfg := DefaultConfig()
	cfg.Project.Candidates = []string{project, filepath.Join(project, "does-not-exist")}

	got, err := cfg.ResolveWorkspace(project)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(project), got)

	_, err = cfg.ResolveWorkspace(other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWorkingDirectoryInvalid))

	var wdErr *WorkingDirectoryError
	require.True(t, errors.As(err, &wdErr))
	assert.Len(t, wdErr.Candidates, 2)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "playground"), ExpandHome("~/playground"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestFixturesRoot(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t,
		filepath.Join("/repo", "crates/ruff_linter/resources/test/fixtures"),
		cfg.FixturesRoot("/repo"))

	cfg.Project.FixturesDir = "/elsewhere/fixtures"
	assert.Equal(t, "/elsewhere/fixtures", cfg.FixturesRoot("/repo"))
}

func TestLoggingCategories(t *testing.T) {
	lc := LoggingConfig{Categories: map[string]bool{"watch": false}}
	assert.False(t, lc.IsCategoryEnabled("watch"))
	assert.True(t, lc.IsCategoryEnabled("resolve"))
}
