package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger provides a standardized logging interface for the audit run.
type StandardLogger struct {
	logger *slog.Logger
}

// NewStandardLogger creates a JSON logger at the given level.
func NewStandardLogger(logLevel string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	return &StandardLogger{logger: logger}
}

// WithComponent creates a logger with component context.
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.With("component", componentName)
}

// WithRunID creates a logger with audit-run context.
func (l *StandardLogger) WithRunID(runID string) *slog.Logger {
	return l.logger.With("run_id", runID)
}

// WithError creates a logger with error context.
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.With("error", err.Error())
}

// LogStartup logs audit run startup information.
func (l *StandardLogger) LogStartup(runID string, captureDir string, journalPath string) {
	l.logger.Info("Audit run starting",
		"run_id", runID,
		"capture_dir", captureDir,
		"journal", journalPath,
		"event", "startup",
	)
}

// LogSkippedRecord logs a malformed record that was skipped, in a
// standardized format.
func (l *StandardLogger) LogSkippedRecord(source string, reason string) {
	l.logger.Warn("Skipped malformed record",
		"source", source,
		"reason", reason,
		"event", "skip",
	)
}

// Logger returns the underlying *slog.Logger.
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger
}

// getSlogLevel converts string level to slog.Level.
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level for services that
// carry their own logrus logger.
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
