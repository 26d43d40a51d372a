package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// subscription maps a WatchSet onto fsnotify watches and filters raw events
// down to the paths that matter.
type subscription struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	ignore  map[string]struct{}

	mu    sync.RWMutex
	trees []string            // recursive roots
	files map[string]struct{} // single files, watched through their parent
	dirs  map[string]struct{} // every directory handed to fsnotify
}

func newSubscription(watcher *fsnotify.Watcher, ignoreDirs []string, logger *zap.Logger) *subscription {
	ignore := make(map[string]struct{}, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignore[d] = struct{}{}
	}
	return &subscription{
		watcher: watcher,
		logger:  logger,
		ignore:  ignore,
		files:   make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
	}
}

// addAll subscribes to every entry and returns a warning per entry that
// could not be watched.
func (s *subscription) addAll(set WatchSet) []string {
	var warnings []string
	for _, p := range set.Paths() {
		info, err := os.Stat(p)
		if err != nil {
			warnings = append(warnings, "not watching "+p+": "+err.Error())
			continue
		}
		if info.IsDir() {
			s.mu.Lock()
			s.trees = append(s.trees, p)
			s.mu.Unlock()
			warnings = append(warnings, s.addTree(p)...)
			continue
		}

		s.mu.Lock()
		s.files[p] = struct{}{}
		s.mu.Unlock()
		if err := s.addDir(filepath.Dir(p)); err != nil {
			warnings = append(warnings, "not watching "+p+": "+err.Error())
		}
	}
	return warnings
}

// addTree watches root and every non-ignored directory below it.
func (s *subscription) addTree(root string) []string {
	var warnings []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, "not watching "+path+": "+err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.ignoredName(d.Name()) {
			return filepath.SkipDir
		}
		if err := s.addDir(path); err != nil {
			warnings = append(warnings, "not watching "+path+": "+err.Error())
			return filepath.SkipDir
		}
		return nil
	})
	return warnings
}

func (s *subscription) addDir(dir string) error {
	s.mu.RLock()
	_, ok := s.dirs[dir]
	s.mu.RUnlock()
	if ok {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return err
	}
	s.mu.Lock()
	s.dirs[dir] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

// dirCount returns how many directories are subscribed.
func (s *subscription) dirCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dirs)
}

// relevant reports whether an event should count toward a trigger.
func (s *subscription) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Clean(ev.Name)
	if isEditorTempFile(filepath.Base(name)) {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[name]; ok {
		return true
	}
	for _, root := range s.trees {
		rel, ok := within(root, name)
		if !ok {
			continue
		}
		if s.ignoredRel(rel) {
			return false
		}
		return true
	}
	return false
}

// followCreate subscribes to directories created inside a recursive root.
func (s *subscription) followCreate(ev fsnotify.Event) []string {
	if !ev.Op.Has(fsnotify.Create) {
		return nil
	}
	name := filepath.Clean(ev.Name)
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return nil
	}

	s.mu.RLock()
	inTree := false
	for _, root := range s.trees {
		if rel, ok := within(root, name); ok && !s.ignoredRel(rel) {
			inTree = true
			break
		}
	}
	s.mu.RUnlock()

	if !inTree {
		return nil
	}
	return s.addTree(name)
}

func (s *subscription) ignoredName(name string) bool {
	_, ok := s.ignore[name]
	return ok
}

func (s *subscription) ignoredRel(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if s.ignoredName(part) {
			return true
		}
	}
	return false
}

// within returns path relative to root when path is root or below it.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// isEditorTempFile matches swap, backup and probe files editors write on save.
func isEditorTempFile(base string) bool {
	switch {
	case base == "4913":
		return true
	case strings.HasSuffix(base, "~"):
		return true
	case strings.HasPrefix(base, ".#"):
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"), strings.HasSuffix(base, ".swo"):
		return true
	}
	return false
}
