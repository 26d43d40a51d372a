// Package logging builds the zap loggers used across ruffdev.
// Console output goes to stderr so it never mixes with the output of the
// watched command; an optional JSON file sink records everything for later.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ruffdev/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, workspace checks
	CategoryResolve Category = "resolve" // Query -> fixture path resolution
	CategoryScratch Category = "scratch" // Playground file creation
	CategoryCommand Category = "command" // RunSpec construction
	CategoryWatch   Category = "watch"   // Filesystem subscription and debouncing
	CategoryTactile Category = "tactile" // Child process lifecycle
)

// Logger bundles the root zap logger with the category filter.
type Logger struct {
	root   *zap.Logger
	cfg    config.LoggingConfig
	closer func()
}

// New builds a logger from the logging config. verbose forces debug level on the console.
func New(cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var consoleEncoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console", "text":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		consoleEncoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unsupported log format %q (supported: console, json)", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
	}
	closer := func() {}

	if cfg.File != "" {
		path := config.ExpandHome(cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		sink, closeSink, err := zap.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		closer = closeSink
		// The file always records debug; it is the place to look after the fact.
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			sink,
			zapcore.DebugLevel,
		))
	}

	return &Logger{
		root:   zap.New(zapcore.NewTee(cores...)),
		cfg:    cfg,
		closer: closer,
	}, nil
}

// Get returns the named logger for a category, or a no-op logger when the
// category is disabled.
func (l *Logger) Get(category Category) *zap.Logger {
	if l == nil || l.root == nil {
		return zap.NewNop()
	}
	if !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return l.root.Named(string(category))
}

// Zap returns the root logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.root == nil {
		return zap.NewNop()
	}
	return l.root
}

// Close flushes buffered entries and releases the file sink.
func (l *Logger) Close() {
	if l == nil || l.root == nil {
		return
	}
	_ = l.root.Sync()
	l.closer()
}

// ParseLevel maps a config level string to a zap level. Empty means warn.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zapcore.WarnLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.WarnLevel, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", level)
	}
}
