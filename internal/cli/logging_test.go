package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/config"
)

func TestNewLoggerStructuredRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "warn", Mode: "structured"}, false, &buf)
	require.NoError(t, err)
	defer closeLog()

	logger.Info("hidden message")
	logger.Warn("visible message", "tab", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "tab")
}

func TestNewLoggerVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "error", Mode: "structured"}, true, &buf)
	require.NoError(t, err)
	defer closeLog()

	logger.Debug("debug message")
	assert.Contains(t, buf.String(), "debug message")
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tabtrail.log")
	var stderr bytes.Buffer
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "info", Mode: "console", File: path}, false, &stderr)
	require.NoError(t, err)

	logger.Info("to the file")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the file")
	assert.Empty(t, stderr.String())
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := newLogger(config.LoggingConfig{Level: "loud"}, false, &buf)
	assert.ErrorContains(t, err, "unknown log level")

	_, _, err = newLogger(config.LoggingConfig{Mode: "xml"}, false, &buf)
	assert.ErrorContains(t, err, "unknown logging mode")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]pslog.Level{
		"":      pslog.InfoLevel,
		"info":  pslog.InfoLevel,
		"DEBUG": pslog.DebugLevel,
		"warn":  pslog.WarnLevel,
		"error": pslog.ErrorLevel,
		"trace": pslog.TraceLevel,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
