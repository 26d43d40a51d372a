package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkingDirectoryError reports a directory outside the configured candidates.
type WorkingDirectoryError struct {
	Dir        string
	Candidates []string
}

func (e *WorkingDirectoryError) Error() string {
	return fmt.Sprintf("%s is not one of: %s", e.Dir, strings.Join(e.Candidates, ", "))
}

func (e *WorkingDirectoryError) Unwrap() error {
	return ErrWorkingDirectoryInvalid
}

// ExpandHome expands a leading "~" to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ProjectCandidates returns the expanded candidate directories.
func (c *Config) ProjectCandidates() []string {
	out := make([]string, 0, len(c.Project.Candidates))
	for _, candidate := range c.Project.Candidates {
		out = append(out, filepath.Clean(ExpandHome(candidate)))
	}
	return out
}

// ResolveWorkspace checks that dir is one of the project candidates and
// returns the matching candidate.
func (c *Config) ResolveWorkspace(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	candidates := c.ProjectCandidates()
	for _, candidate := range candidates {
		if samePath(abs, candidate) {
			return candidate, nil
		}
	}
	return "", &WorkingDirectoryError{Dir: abs, Candidates: candidates}
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
