package config_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/satvault/internal/config"
)

// #nosec G304 -- test helper with controlled paths from t.TempDir()
func readLogFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func newTestLogger(t *testing.T, level config.LogLevel) (*config.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "satvault.log")
	logger, err := config.NewLogger(level, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, path
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"OFF", config.LogLevelOff},
		{"none", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"  debug  ", config.LogLevelDebug},
		{"DEBUG", config.LogLevelDebug},
		{"warn", config.LogLevelError},
		{"", config.LogLevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input), tt.input)
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(42).String())
}

func TestNewLogger_NoFileWhenOff(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "off.log")
	logger, err := config.NewLogger(config.LogLevelOff, path)
	require.NoError(t, err)

	logger.Error("nothing")
	logger.ErrorAttrs("nothing", slog.String("k", "v"))
	require.NoError(t, logger.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Nil(t, logger.Structured())
}

func TestNewLogger_EmptyPathIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	logger.Debug("ignored")
	logger.DebugAttrs("ignored")
	require.NoError(t, logger.Close())
}

func TestNewLogger_CreatesPrivateFile(t *testing.T) {
	t.Parallel()

	_, path := newTestLogger(t, config.LogLevelError)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()

	_, err := config.NewLogger(config.LogLevelDebug, "/proc/nonexistent/satvault.log")
	require.Error(t, err)
}

func TestLogger_LineFormat(t *testing.T) {
	t.Parallel()

	logger, path := newTestLogger(t, config.LogLevelDebug)
	logger.Debug("unlock attempt %d", 3)
	logger.Error("store failed: %s", "disk full")

	lines := strings.Split(strings.TrimSpace(readLogFile(t, path)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[DEBUG] unlock attempt 3")
	assert.Contains(t, lines[1], "[ERROR] store failed: disk full")
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	logger, path := newTestLogger(t, config.LogLevelError)
	logger.Debug("hidden debug")
	logger.DebugAttrs("hidden attrs", slog.String("k", "v"))
	_, _ = logger.Writer(config.LogLevelDebug).Write([]byte("hidden writer"))
	logger.Error("visible error")

	content := readLogFile(t, path)
	assert.NotContains(t, content, "hidden")
	assert.Contains(t, content, "visible error")

	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.Debug("now visible")
	assert.Contains(t, readLogFile(t, path), "now visible")
}

func TestLogger_AttrsText(t *testing.T) {
	t.Parallel()

	logger, path := newTestLogger(t, config.LogLevelDebug)
	logger.ErrorAttrs("unlock failed", slog.String("op", "unlock"), slog.Int("attempt", 2))

	content := readLogFile(t, path)
	assert.Contains(t, content, "[ERROR] unlock failed op=unlock attempt=2")
}

func TestLogger_JSONOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := config.NewStructuredLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	logger.DebugAttrs("wallet created", slog.String("network", "mainnet"), slog.Bool("restored", false))
	logger.Structured().Info("direct slog", "key", "value")

	lines := strings.Split(strings.TrimSpace(readLogFile(t, path)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "wallet created", rec["msg"])
	assert.Equal(t, "mainnet", rec["network"])
	assert.Equal(t, false, rec["restored"])
	assert.Contains(t, lines[1], `"key":"value"`)
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()

	logger, path := newTestLogger(t, config.LogLevelDebug)
	w := logger.Writer(config.LogLevelDebug)
	require.Implements(t, (*io.Writer)(nil), w)

	_, err := io.Copy(w, bytes.NewBufferString("copied via io\n"))
	require.NoError(t, err)
	assert.Contains(t, readLogFile(t, path), "[DEBUG] copied via io")
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()

	logger, path := newTestLogger(t, config.LogLevelDebug)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Debug("message %d", n)
			logger.ErrorAttrs("attrs", slog.Int("n", n))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readLogFile(t, path)), "\n")
	assert.Len(t, lines, 20)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()

	logger := config.NullLogger()
	logger.Debug("x")
	logger.Error("x")
	logger.DebugAttrs("x")
	logger.ErrorAttrs("x")
	assert.Nil(t, logger.Structured())
	assert.Equal(t, config.LogLevelOff, logger.Level())
	require.NoError(t, logger.Close())
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := config.ExpandPath("~/satvault.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "satvault.log"), got)

	got, err = config.ExpandPath("/abs/path.log")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path.log", got)
}
