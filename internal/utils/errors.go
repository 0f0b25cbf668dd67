package utils

import "fmt"

// ConfigError represents a fatal configuration problem detected before any
// processing starts. These abort the run.
type ConfigError struct {
	Message string
}

// Error returns the error message string.
func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigErrorf creates a ConfigError with a formatted message.
func NewConfigErrorf(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// RecordError marks a single malformed input record (bad filename, empty bar
// table, unparseable timestamp). Callers log it and skip the record; it never
// aborts a batch.
type RecordError struct {
	Source  string
	Message string
}

// Error returns the error message string.
func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// NewRecordErrorf creates a RecordError for the given source file or line.
func NewRecordErrorf(source, format string, args ...interface{}) error {
	return &RecordError{Source: source, Message: fmt.Sprintf(format, args...)}
}
