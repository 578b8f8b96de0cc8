// Package logging provides structured logging for delegated-administrator
// enablement and custom-resource lifecycle events. It defines a Logger
// interface and implementations for JSON output, CloudWatch Logs and
// no-op logging.
package logging

import (
	"encoding/json"
	"io"
	"sync"
)

// Logger defines the interface for logging enablement outcomes and
// custom-resource lifecycle events.
type Logger interface {
	// LogEnablement logs the outcome of an Enable or Disable call.
	LogEnablement(entry EnablementLogEntry)

	// LogLifecycle logs the outcome of a CloudFormation lifecycle event.
	LogLifecycle(entry LifecycleLogEntry)
}

// JSONLogger implements Logger with JSON Lines output.
// Each entry is written as a single line of JSON suitable for log aggregation.
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewJSONLogger creates a new JSONLogger that writes to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w}
}

// LogEnablement writes the entry as a single line of JSON.
func (l *JSONLogger) LogEnablement(entry EnablementLogEntry) {
	l.writeLine(entry)
}

// LogLifecycle writes the lifecycle entry as a single line of JSON.
func (l *JSONLogger) LogLifecycle(entry LifecycleLogEntry) {
	l.writeLine(entry)
}

func (l *JSONLogger) writeLine(entry any) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(append(data, '\n'))
}

// NopLogger implements Logger but discards all entries.
type NopLogger struct{}

// NewNopLogger creates a new NopLogger that discards all entries.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// LogEnablement discards the entry.
func (l *NopLogger) LogEnablement(entry EnablementLogEntry) {}

// LogLifecycle discards the entry.
func (l *NopLogger) LogLifecycle(entry LifecycleLogEntry) {}

// MultiLogger fans entries out to several loggers.
type MultiLogger []Logger

// LogEnablement forwards the entry to every logger.
func (m MultiLogger) LogEnablement(entry EnablementLogEntry) {
	for _, l := range m {
		l.LogEnablement(entry)
	}
}

// LogLifecycle forwards the entry to every logger.
func (m MultiLogger) LogLifecycle(entry LifecycleLogEntry) {
	for _, l := range m {
		l.LogLifecycle(entry)
	}
}
