// Package logx provides the standard logger implementation for dosnap.
package logx

import (
	"log"
	"os"
	"sync"
)

type LoggingLevel string

const (
	LogLevelDebug LoggingLevel = "debug"
	LogLevelInfo  LoggingLevel = "info"
	LogLevelWarn  LoggingLevel = "warn"
	LogLevelError LoggingLevel = "error"
)

// Logger defines the interface for logging.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	SetLevel(level LoggingLevel)
}

// DefaultLogger provides a basic logger implementation using the standard log package.
type DefaultLogger struct {
	logger *log.Logger
	level  LoggingLevel
	mu     sync.Mutex
}

// Ensure interface compliance
var _ Logger = (*DefaultLogger)(nil)

// NewDefaultLogger creates a new logger writing to stderr with standard flags.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[DOSnap] ", log.LstdFlags|log.Lmsgprefix),
		level:  LogLevelInfo,
	}
}

func severity(level LoggingLevel) int {
	switch level {
	case LogLevelDebug:
		return 0
	case LogLevelInfo:
		return 1
	case LogLevelWarn:
		return 2
	case LogLevelError:
		return 3
	}
	return 1
}

func (l *DefaultLogger) enabled(level LoggingLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return severity(level) >= severity(l.level)
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	if l.enabled(LogLevelDebug) {
		l.logger.Printf("DEBUG: "+msg, args...)
	}
}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	if l.enabled(LogLevelInfo) {
		l.logger.Printf("INFO: "+msg, args...)
	}
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	if l.enabled(LogLevelWarn) {
		l.logger.Printf("WARN: "+msg, args...)
	}
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	if l.enabled(LogLevelError) {
		l.logger.Printf("ERROR: "+msg, args...)
	}
}

// SetLevel updates the logging level for the DefaultLogger.
func (l *DefaultLogger) SetLevel(level LoggingLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}
