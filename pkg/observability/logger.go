// Package observability provides the logging, metrics and tracing used
// throughout docring, mirroring the unified observability layer the
// wider developer-mesh workspace gives each of its services.
package observability

import (
	"fmt"
	"log"
	"os"
)

// LogLevel controls which calls to Logger actually emit output.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// Logger is the structured logging interface every docring component
// depends on instead of fmt.Println.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})
	WithPrefix(prefix string) Logger
}

// StandardLogger writes one line per call to stderr so that stdout stays
// free for the response stream the driver prints.
type StandardLogger struct {
	prefix string
	level  LogLevel
	logger *log.Logger
}

// NewStandardLogger creates a StandardLogger with the given prefix at
// LogLevelInfo.
func NewStandardLogger(prefix string) Logger {
	return &StandardLogger{
		prefix: prefix,
		level:  LogLevelInfo,
		logger: log.New(os.Stderr, "", 0),
	}
}

// WithLevel returns a copy of the logger at the given level.
func (l *StandardLogger) WithLevel(level LogLevel) *StandardLogger {
	return &StandardLogger{prefix: l.prefix, level: level, logger: l.logger}
}

// WithPrefix returns a copy of the logger with a new prefix.
func (l *StandardLogger) WithPrefix(prefix string) Logger {
	return &StandardLogger{prefix: prefix, level: l.level, logger: l.logger}
}

func (l *StandardLogger) Debug(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelDebug) {
		l.log(LogLevelDebug, msg, fields)
	}
}

func (l *StandardLogger) Info(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelInfo) {
		l.log(LogLevelInfo, msg, fields)
	}
}

func (l *StandardLogger) Warn(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelWarn) {
		l.log(LogLevelWarn, msg, fields)
	}
}

func (l *StandardLogger) Error(msg string, fields map[string]interface{}) {
	l.log(LogLevelError, msg, fields)
}

func (l *StandardLogger) Fatal(msg string, fields map[string]interface{}) {
	l.log(LogLevelFatal, msg, fields)
	os.Exit(1)
}

func (l *StandardLogger) levelEnabled(level LogLevel) bool {
	return level >= l.level
}

func (l *StandardLogger) log(level LogLevel, msg string, fields map[string]interface{}) {
	levelStr := levelName(level)
	if l.prefix != "" {
		l.logger.Printf("[%s] %s: %s %s", levelStr, l.prefix, msg, formatFields(fields))
		return
	}
	l.logger.Printf("[%s] %s %s", levelStr, msg, formatFields(fields))
}

func levelName(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	out := ""
	for k, v := range fields {
		out += fmt.Sprintf("%s=%v ", k, v)
	}
	return out
}

// noopLogger discards everything; used in tests so assertions aren't
// drowned out by log lines.
type noopLogger struct{}

// NewNoopLogger returns a Logger that discards all output.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}
func (noopLogger) Fatal(string, map[string]interface{}) {}
func (l noopLogger) WithPrefix(string) Logger           { return l }
