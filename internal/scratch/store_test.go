package scratch

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGetOrCreate_CreatesParentsAndEmptyFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "playground")
	store := New(root, "pyproject.toml", zaptest.NewLogger(t))

	path, err := store.GetOrCreate("src/E501.py")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "E501.py"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Zero(t, info.Size())
}

func TestGetOrCreate_IsIdempotent(t *testing.T) {
	store := New(t.TempDir(), "pyproject.toml", nil)

	var created []string
	store.SetCreateCallback(func(path string) {
		created = append(created, path)
	})

	first, err := store.GetOrCreate("src/E501.py")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first, []byte("x = 1\n"), 0644))

	second, err := store.GetOrCreate("src/E501.py")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data), "existing content must survive")
	assert.Equal(t, []string{first}, created, "creation is reported once")
}

func TestGetOrCreate_RejectsEscapes(t *testing.T) {
	store := New(t.TempDir(), "pyproject.toml", nil)

	for _, rel := range []string{"", "../outside.py", "/etc/passwd", "."} {
		_, err := store.GetOrCreate(rel)
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, ErrCreationFailed), rel)
	}
}

func TestGetOrCreate_DirectoryInTheWay(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "E501.py"), 0755))

	_, err := New(root, "pyproject.toml", nil).GetOrCreate("src/E501.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreationFailed))
}

func TestGetOrCreate_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0555))
	t.Cleanup(func() { _ = os.Chmod(root, 0755) })

	_, err := New(root, "pyproject.toml", nil).GetOrCreate("src/E501.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreationFailed))
	assert.True(t, errors.Is(err, os.ErrPermission))

	var createErr *CreationFailedError
	require.True(t, errors.As(err, &createErr))
	assert.Equal(t, filepath.Join(root, "src", "E501.py"), createErr.Path)
}

func TestConfigPath(t *testing.T) {
	root := t.TempDir()
	store := New(root, "pyproject.toml", nil)

	path, err := store.ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pyproject.toml"), path)
	assert.FileExists(t, path)
}

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, CheckConfig(filepath.Join(dir, "missing.toml")))

	empty := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	assert.NoError(t, CheckConfig(empty))

	valid := filepath.Join(dir, "valid.toml")
	require.NoError(t, os.WriteFile(valid, []byte("[tool.ruff]\nline-length = 88\n"), 0644))
	assert.NoError(t, CheckConfig(valid))

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[tool.ruff\nline-length = 88\n"), 0644))
	err := CheckConfig(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken+":1:")
}
