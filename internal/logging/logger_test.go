package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ruffdev/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.WarnLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(config.LoggingConfig{Format: "xml"}, false)
	assert.Error(t, err)
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ruffdev.log")

	l, err := New(config.LoggingConfig{Level: "error", File: path}, false)
	require.NoError(t, err)

	// Below the console level, but the file records debug.
	l.Get(CategoryWatch).Debug("trigger fired", zap.Int("seq", 3))
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "trigger fired", entry["msg"])
	assert.Equal(t, "watch", entry["logger"])
	assert.EqualValues(t, 3, entry["seq"])
}

func TestGet_DisabledCategoryIsNop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{
		root:   zap.New(core),
		cfg:    config.LoggingConfig{Categories: map[string]bool{"tactile": false}},
		closer: func() {},
	}

	l.Get(CategoryTactile).Info("hidden")
	l.Get(CategoryResolve).Info("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "resolve", logs.All()[0].LoggerName)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Get(CategoryBoot).Info("ignored")
		l.Zap().Info("ignored")
		l.Close()
	})
}
