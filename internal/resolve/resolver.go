// Package resolve turns rule identifiers into the concrete files a run operates on:
// checked-in fixtures in repository mode, or scratch files in playground mode.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// ErrResolutionEmpty is matched by a NotFoundError.
var ErrResolutionEmpty = errors.New("no fixture matched the query")

// NotFoundError lists the identifiers that matched nothing.
type NotFoundError struct {
	Identifiers []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find any fixture file for rule(s) %s", strings.Join(e.Identifiers, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrResolutionEmpty
}

// Provenance tags where a resolved path came from.
type Provenance int

const (
	Fixture Provenance = iota + 1
	Scratch
	Config
)

func (p Provenance) String() string {
	switch p {
	case Fixture:
		return "fixture"
	case Scratch:
		return "scratch"
	case Config:
		return "config"
	default:
		return fmt.Sprintf("provenance(%d)", int(p))
	}
}

// Query is what the user asked for. No identifiers means "build only".
type Query struct {
	Identifiers []string
	Playground  bool
}

// ResolvedPath is an absolute path plus where it came from.
type ResolvedPath struct {
	Path       string
	Provenance Provenance
	// Identifier that produced this path; empty for the config overlay.
	Identifier string
}

// Resolution is the outcome of resolving one Query.
type Resolution struct {
	Identifiers []string
	Paths       []ResolvedPath
	// Unmatched identifiers when at least one other identifier matched.
	Unmatched  []string
	Playground bool
}

// Empty reports whether there is nothing to run against.
func (r Resolution) Empty() bool {
	return len(r.Paths) == 0
}

// Subjects returns the fixture and scratch paths, in resolution order.
func (r Resolution) Subjects() []string {
	var out []string
	for _, p := range r.Paths {
		if p.Provenance == Fixture || p.Provenance == Scratch {
			out = append(out, p.Path)
		}
	}
	return out
}

// ConfigPath returns the config overlay path, or "" when there is none.
func (r Resolution) ConfigPath() string {
	for _, p := range r.Paths {
		if p.Provenance == Config {
			return p.Path
		}
	}
	return ""
}

// All returns every resolved path, in resolution order.
func (r Resolution) All() []string {
	out := make([]string, 0, len(r.Paths))
	for _, p := range r.Paths {
		out = append(out, p.Path)
	}
	return out
}

// ExtensionPolicy picks a file extension from an identifier's category prefix.
type ExtensionPolicy struct {
	Default  string
	ByPrefix map[string]string
}

// For returns the extension for id. The longest matching prefix wins.
func (p ExtensionPolicy) For(id string) string {
	ext, best := p.Default, -1
	for prefix, candidate := range p.ByPrefix {
		if strings.HasPrefix(id, prefix) && len(prefix) > best {
			ext, best = candidate, len(prefix)
		}
	}
	if ext == "" {
		return "py"
	}
	return ext
}

// ScratchFiles is the part of the scratch store the resolver needs.
type ScratchFiles interface {
	GetOrCreate(rel string) (string, error)
	ConfigPath() (string, error)
}

// Options configures a Resolver.
type Options struct {
	// FixturesRoot is searched recursively in repository mode.
	FixturesRoot string
	// SourceDir is the playground sub-directory holding scratch files.
	SourceDir  string
	Extensions ExtensionPolicy
}

// Resolver resolves queries against the fixtures tree or the playground.
type Resolver struct {
	opts   Options
	store  ScratchFiles
	logger *zap.Logger
}

// New creates a resolver. store may be nil when playground mode is never used.
func New(opts Options, store ScratchFiles, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SourceDir == "" {
		opts.SourceDir = "src"
	}
	return &Resolver{opts: opts, store: store, logger: logger}
}

// Resolve resolves q. Repository-mode queries matching nothing at all return a
// *NotFoundError; scratch creation failures are returned unchanged.
func (r *Resolver) Resolve(q Query) (Resolution, error) {
	res := Resolution{
		Identifiers: append([]string(nil), q.Identifiers...),
		Playground:  q.Playground,
	}
	if len(q.Identifiers) == 0 {
		r.logger.Debug("empty query, nothing to resolve", zap.Bool("playground", q.Playground))
		return res, nil
	}

	if q.Playground {
		return r.resolvePlayground(res)
	}
	return r.resolveFixtures(res)
}

func (r *Resolver) resolvePlayground(res Resolution) (Resolution, error) {
	if r.store == nil {
		return res, errors.New("playground mode requires a scratch store")
	}

	for _, id := range res.Identifiers {
		rel := filepath.Join(r.opts.SourceDir, id+"."+r.opts.Extensions.For(id))
		path, err := r.store.GetOrCreate(rel)
		if err != nil {
			return res, err
		}
		res.Paths = append(res.Paths, ResolvedPath{Path: path, Provenance: Scratch, Identifier: id})
	}

	cfgPath, err := r.store.ConfigPath()
	if err != nil {
		return res, err
	}
	res.Paths = append(res.Paths, ResolvedPath{Path: cfgPath, Provenance: Config})

	r.logger.Debug("resolved playground files",
		zap.Strings("identifiers", res.Identifiers),
		zap.Int("paths", len(res.Paths)))
	return res, nil
}

func (r *Resolver) resolveFixtures(res Resolution) (Resolution, error) {
	root, err := filepath.Abs(r.opts.FixturesRoot)
	if err != nil {
		return res, fmt.Errorf("invalid fixtures root %q: %w", r.opts.FixturesRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return res, fmt.Errorf("fixtures root unavailable: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("fixtures root %s is not a directory", root)
	}

	fsys := os.DirFS(root)
	var unmatched []string
	for _, id := range res.Identifiers {
		matches, err := r.glob(fsys, id)
		if err != nil {
			return res, fmt.Errorf("failed to search fixtures for %s: %w", id, err)
		}
		if len(matches) == 0 {
			unmatched = append(unmatched, id)
			continue
		}
		for _, m := range matches {
			res.Paths = append(res.Paths, ResolvedPath{
				Path:       filepath.Join(root, filepath.FromSlash(m)),
				Provenance: Fixture,
				Identifier: id,
			})
		}
	}

	if len(res.Paths) == 0 {
		return res, &NotFoundError{Identifiers: unmatched}
	}
	if len(unmatched) > 0 {
		res.Unmatched = unmatched
		r.logger.Warn("some identifiers matched no fixtures", zap.Strings("unmatched", unmatched))
	}

	r.logger.Debug("resolved fixtures",
		zap.Strings("identifiers", res.Identifiers),
		zap.Int("paths", len(res.Paths)))
	return res, nil
}

// glob finds every file under fsys whose name contains id followed by the
// extension, allowing trailing qualifiers after it (E501.py.snap).
func (r *Resolver) glob(fsys fs.FS, id string) ([]string, error) {
	pattern := "**/*" + escapeMeta(id) + "*." + escapeMeta(r.opts.Extensions.For(id)) + "*"
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
