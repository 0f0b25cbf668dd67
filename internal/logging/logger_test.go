package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func setupTestLogger(logLevel string) (*StandardLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	return &StandardLogger{logger: logger}, buf
}

func TestNewStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info")

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
}

func TestNewStandardLogger_LogLevels(t *testing.T) {
	tests := []struct {
		levelStr string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // Should default to info
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			level := getSlogLevel(tt.levelStr)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestStandardLogger_WithComponent(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.WithComponent("capture_loader").Info("test message")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `"component":"capture_loader"`)
	assert.Contains(t, logOutput, "test message")
}

func TestStandardLogger_WithRunID(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.WithRunID("run-123456").Info("test message")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `"run_id":"run-123456"`)
	assert.Contains(t, logOutput, "test message")
}

func TestStandardLogger_WithError(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.WithError(assert.AnError).Error("test error message")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `"error":`)
	assert.Contains(t, logOutput, "test error message")
}

func TestStandardLogger_LogStartup(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.LogStartup("run-1", "/data/replays", "/data/trade_journal.jsonl")

	logOutput := buf.String()
	assert.Contains(t, logOutput, "Audit run starting")
	assert.Contains(t, logOutput, `"run_id":"run-1"`)
	assert.Contains(t, logOutput, `"capture_dir":"/data/replays"`)
	assert.Contains(t, logOutput, `"journal":"/data/trade_journal.jsonl"`)
	assert.Contains(t, logOutput, `"event":"startup"`)
}

func TestStandardLogger_LogSkippedRecord(t *testing.T) {
	logger, buf := setupTestLogger("warn")

	logger.LogSkippedRecord("replay_bad.csv", "missing bar table")

	logOutput := buf.String()
	assert.Contains(t, logOutput, "Skipped malformed record")
	assert.Contains(t, logOutput, `"source":"replay_bad.csv"`)
	assert.Contains(t, logOutput, `"reason":"missing bar table"`)
	assert.Contains(t, logOutput, `"event":"skip"`)
}

func TestStandardLogger_LevelFiltering(t *testing.T) {
	logger, buf := setupTestLogger("error")

	logger.Logger().Info("info should be dropped")
	logger.Logger().Error("error should appear")

	logOutput := buf.String()
	assert.NotContains(t, logOutput, "info should be dropped")
	assert.Contains(t, logOutput, "error should appear")
}

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		levelStr string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"invalid", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.levelStr))
		})
	}
}
