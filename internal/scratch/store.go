// Package scratch manages the playground tree: lazily created scratch files
// that mirror the fixtures naming scheme, plus the hand-edited config overlay.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrCreationFailed is matched by every error returned from GetOrCreate.
var ErrCreationFailed = errors.New("scratch file creation failed")

// CreationFailedError carries the path that could not be created.
type CreationFailedError struct {
	Path string
	Err  error
}

func (e *CreationFailedError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Path, e.Err)
}

func (e *CreationFailedError) Unwrap() []error {
	return []error{ErrCreationFailed, e.Err}
}

// Store creates playground files on first use and returns them unchanged afterwards.
type Store struct {
	root       string
	configName string
	logger     *zap.Logger

	mu       sync.RWMutex
	onCreate func(path string)
}

// New creates a store rooted at root. configName is the overlay file name
// relative to the root (e.g. "pyproject.toml").
func New(root, configName string, logger *zap.Logger) *Store {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:       root,
		configName: configName,
		logger:     logger,
	}
}

// Root returns the absolute playground root.
func (s *Store) Root() string {
	return s.root
}

// SetCreateCallback registers a function called once per newly created file.
func (s *Store) SetCreateCallback(callback func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCreate = callback
}

// GetOrCreate returns the absolute path of rel under the root, creating the
// file (and its parent directories) empty if it does not exist yet. An
// existing file is never truncated or rewritten.
func (s *Store) GetOrCreate(rel string) (string, error) {
	path, err := s.join(rel)
	if err != nil {
		return "", &CreationFailedError{Path: rel, Err: err}
	}

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", &CreationFailedError{Path: path, Err: errors.New("path is a directory")}
		}
		return path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", &CreationFailedError{Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &CreationFailedError{Path: path, Err: err}
	}

	// O_EXCL: a file that appeared since the Stat above is left alone.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, nil
		}
		return "", &CreationFailedError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &CreationFailedError{Path: path, Err: err}
	}

	s.logger.Info("created scratch file", zap.String("path", path))

	s.mu.RLock()
	callback := s.onCreate
	s.mu.RUnlock()
	if callback != nil {
		callback(path)
	}

	return path, nil
}

// ConfigPath returns the config overlay path, creating it empty on first use.
func (s *Store) ConfigPath() (string, error) {
	return s.GetOrCreate(s.configName)
}

func (s *Store) join(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", errors.New("empty scratch file name")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("scratch file name %q must be relative", rel)
	}
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("scratch file name %q escapes the playground root", rel)
	}
	return filepath.Join(s.root, clean), nil
}
