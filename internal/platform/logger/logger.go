// Package logger provides structured logging for the arena server.
// Every join, split and consumption the server records should be traceable through this.
package logger

import (
	"io"
	"log"
	"os"
)

// Logger provides structured logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger instance writing to stdout and stderr.
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout, os.Stderr)
}

// NewLoggerWithWriter creates a logger with explicit sinks. Tests pass io.Discard or a buffer.
func NewLoggerWithWriter(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		infoLogger:  log.New(out, "[ARENA-INFO] ", flags),
		warnLogger:  log.New(out, "[ARENA-WARN] ", flags),
		errorLogger: log.New(errOut, "[ARENA-ERROR] ", flags),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Println(msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Println(msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Println(msg)
}

// Event logs a specific gameplay event.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Printf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details)
}
