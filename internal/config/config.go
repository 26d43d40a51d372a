package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrWorkingDirectoryInvalid is returned when the tool runs outside every configured project directory.
var ErrWorkingDirectoryInvalid = errors.New("working directory is not a known project directory")

// Config holds all ruffdev configuration.
type Config struct {
	// Project layout (where the Ruff checkout lives)
	Project ProjectConfig `yaml:"project"`

	// Playground scratch tree
	Playground PlaygroundConfig `yaml:"playground"`

	// Watch loop timings and filters
	Watch WatchConfig `yaml:"watch"`

	// Per sub-command watch targets
	Targets TargetsConfig `yaml:"targets"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProjectConfig describes the checkout the tool operates on.
type ProjectConfig struct {
	// Candidates are the directories the tool may be run from.
	Candidates []string `yaml:"candidates"`

	// FixturesDir is the fixtures root, relative to the project directory.
	FixturesDir string `yaml:"fixtures_dir"`

	// DefaultExtension is used for identifiers without a category override.
	DefaultExtension string `yaml:"default_extension"`

	// PrefixExtensions maps an identifier prefix (e.g. PYI) to an alternate extension.
	PrefixExtensions map[string]string `yaml:"prefix_extensions"`
}

// PlaygroundConfig describes the read-write scratch tree.
type PlaygroundConfig struct {
	Root       string `yaml:"root"`
	SourceDir  string `yaml:"source_dir"`
	ConfigFile string `yaml:"config_file"`
}

// WatchConfig configures the watch supervisor.
type WatchConfig struct {
	Debounce    string   `yaml:"debounce"`
	GracePeriod string   `yaml:"grace_period"`
	IgnoreDirs  []string `yaml:"ignore_dirs"`
}

// LinterTarget configures the rule-driven linter loop.
type LinterTarget struct {
	// Roots are watched in addition to the resolved fixture paths.
	Roots     []string `yaml:"roots"`
	Program   string   `yaml:"program"`
	BuildArgs []string `yaml:"build_args"`
	RunArgs   []string `yaml:"run_args"`
	CheckArgs []string `yaml:"check_args"`
	CacheArgs []string `yaml:"cache_args"`
}

// CommandTarget is a fixed command rerun whenever its roots change.
type CommandTarget struct {
	Roots   []string `yaml:"roots"`
	Command []string `yaml:"command"`

	// PlaygroundFile is used when the target takes a file and none was given.
	PlaygroundFile string `yaml:"playground_file,omitempty"`
}

// TargetsConfig groups the watch targets by sub-command.
type TargetsConfig struct {
	Linter    LinterTarget  `yaml:"linter"`
	Docs      CommandTarget `yaml:"docs"`
	Formatter CommandTarget `yaml:"formatter"`
	Tokens    CommandTarget `yaml:"tokens"`
	AST       CommandTarget `yaml:"ast"`
}

// DefaultConfigPath returns the user-level configuration path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".ruffdev", "config.yaml")
	}
	return filepath.Join(dir, "ruffdev", "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Candidates: []string{
				"~/work/astral/ruff",
				"~/work/astral/ruff-test",
			},
			FixturesDir:      "crates/ruff_linter/resources/test/fixtures",
			DefaultExtension: "py",
			PrefixExtensions: map[string]string{
				"PYI": "pyi",
			},
		},

		Playground: PlaygroundConfig{
			Root:       "~/playground/ruff",
			SourceDir:  "src",
			ConfigFile: "pyproject.toml",
		},

		Watch: WatchConfig{
			Debounce:    "300ms",
			GracePeriod: "2s",
			IgnoreDirs:  []string{".git", "target", "__pycache__", "node_modules", ".mypy_cache", ".ruff_cache"},
		},

		Targets: TargetsConfig{
			Linter: LinterTarget{
				Roots: []string{
					// The linter crate itself...
					"crates/ruff_linter",
					// ... and the dependencies of `ruff_linter`
					"crates/ruff_cache",
					"crates/ruff_diagnostics",
					"crates/ruff_notebook",
					"crates/ruff_macros",
					"crates/ruff_python_ast",
					"crates/ruff_python_codegen",
					"crates/ruff_python_index",
					"crates/ruff_python_literal",
					"crates/ruff_python_semantic",
					"crates/ruff_python_stdlib",
					"crates/ruff_python_trivia",
					"crates/ruff_python_parser",
					"crates/ruff_source_file",
					"crates/ruff_text_size",
				},
				Program:   "cargo",
				BuildArgs: []string{"build", "--all-features", "--bin=ruff", "--package=ruff"},
				RunArgs:   []string{"run", "--all-features", "--bin=ruff", "--package=ruff", "--"},
				CheckArgs: []string{"check"},
				CacheArgs: []string{"--no-cache"},
			},
			Docs: CommandTarget{
				Roots: []string{
					"crates/ruff_linter",
					"crates/ruff_dev",
					"mkdocs.template.yml",
					"mkdocs.insiders.yml",
					"scripts/generate_mkdocs.py",
					// Only the files that aren't auto-generated.
					"docs/editors",
					"docs/tutorial.md",
					"docs/installation.md",
					"docs/linter.md",
					"docs/formatter.md",
					"docs/configuration.md",
					"docs/preview.md",
					"docs/versioning.md",
					"docs/integrations.md",
					"docs/faq.md",
				},
				Command: []string{"python", "scripts/generate_mkdocs.py"},
			},
			Formatter: CommandTarget{
				Roots:   []string{"crates/ruff_python_formatter"},
				Command: []string{"cargo", "build", "--bin", "ruff_python_formatter"},
			},
			Tokens: CommandTarget{
				Roots:          []string{"crates/ruff_dev", "crates/ruff_python_ast", "crates/ruff_python_parser"},
				Command:        []string{"cargo", "dev", "print-tokens"},
				PlaygroundFile: "src/tokens.py",
			},
			AST: CommandTarget{
				Roots:          []string{"crates/ruff_dev", "crates/ruff_python_ast", "crates/ruff_python_parser"},
				Command:        []string{"cargo", "dev", "print-ast"},
				PlaygroundFile: "parser/_.py",
			},
		},

		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
// Any env files are loaded first (missing ones are ignored) so their values
// participate in the environment overrides.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("RUFFDEV_PROJECT"); dir != "" {
		// An explicit project replaces the candidate list.
		c.Project.Candidates = []string{dir}
	}
	if dir := os.Getenv("RUFFDEV_PLAYGROUND"); dir != "" {
		c.Playground.Root = dir
	}
	if d := os.Getenv("RUFFDEV_DEBOUNCE"); d != "" {
		c.Watch.Debounce = d
	}
	if d := os.Getenv("RUFFDEV_GRACE_PERIOD"); d != "" {
		c.Watch.GracePeriod = d
	}
	if level := os.Getenv("RUFFDEV_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("RUFFDEV_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}

// Validate checks the configuration for values that would fail later.
func (c *Config) Validate() error {
	if len(c.Project.Candidates) == 0 {
		return fmt.Errorf("project.candidates must list at least one directory")
	}
	if strings.TrimSpace(c.Project.FixturesDir) == "" {
		return fmt.Errorf("project.fixtures_dir is required")
	}
	if strings.TrimSpace(c.Playground.Root) == "" {
		return fmt.Errorf("playground.root is required")
	}
	if strings.TrimSpace(c.Targets.Linter.Program) == "" {
		return fmt.Errorf("targets.linter.program is required")
	}
	for name, d := range map[string]string{
		"watch.debounce":     c.Watch.Debounce,
		"watch.grace_period": c.Watch.GracePeriod,
	} {
		if d == "" {
			continue
		}
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, d, err)
		}
		if parsed < 0 {
			return fmt.Errorf("invalid %s %q: must not be negative", name, d)
		}
	}
	for name, target := range map[string]CommandTarget{
		"docs":      c.Targets.Docs,
		"formatter": c.Targets.Formatter,
		"tokens":    c.Targets.Tokens,
		"ast":       c.Targets.AST,
	} {
		if len(target.Command) == 0 {
			return fmt.Errorf("targets.%s.command is required", name)
		}
	}
	return nil
}

// GetDebounce returns the debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// GetGracePeriod returns the termination grace period as a duration.
func (c *Config) GetGracePeriod() time.Duration {
	d, err := time.ParseDuration(c.Watch.GracePeriod)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// PlaygroundRoot returns the expanded playground root.
func (c *Config) PlaygroundRoot() string {
	return ExpandHome(c.Playground.Root)
}

// FixturesRoot returns the fixtures root for the given project directory.
func (c *Config) FixturesRoot(projectDir string) string {
	dir := ExpandHome(c.Project.FixturesDir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(projectDir, dir)
}
