package watch

import "path/filepath"

// WatchSet is an ordered set of absolute paths to monitor. Directories are
// watched recursively; files are watched by name.
type WatchSet struct {
	paths []string
	seen  map[string]struct{}
}

// NewWatchSet builds a set from entries; relative entries are taken relative to base.
func NewWatchSet(base string, entries ...string) WatchSet {
	var w WatchSet
	return w.with(base, entries)
}

// With returns a copy of the set with entries appended. Relative entries are
// made absolute against the process working directory.
func (w WatchSet) With(entries ...string) WatchSet {
	return w.with("", entries)
}

func (w WatchSet) with(base string, entries []string) WatchSet {
	out := WatchSet{
		paths: make([]string, 0, len(w.paths)+len(entries)),
		seen:  make(map[string]struct{}, len(w.paths)+len(entries)),
	}
	for _, p := range w.paths {
		out.add(p)
	}
	for _, e := range entries {
		if e == "" {
			continue
		}
		if !filepath.IsAbs(e) && base != "" {
			e = filepath.Join(base, e)
		}
		if abs, err := filepath.Abs(e); err == nil {
			e = abs
		}
		out.add(filepath.Clean(e))
	}
	return out
}

func (w *WatchSet) add(p string) {
	if _, ok := w.seen[p]; ok {
		return
	}
	w.seen[p] = struct{}{}
	w.paths = append(w.paths, p)
}

// Paths returns the entries in insertion order.
func (w WatchSet) Paths() []string {
	return append([]string(nil), w.paths...)
}

// Len returns the number of entries.
func (w WatchSet) Len() int {
	return len(w.paths)
}

// Contains reports whether p (cleaned, absolute) is an entry.
func (w WatchSet) Contains(p string) bool {
	_, ok := w.seen[filepath.Clean(p)]
	return ok
}
