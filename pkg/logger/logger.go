// Package logger bridges slog onto the printf and key/value logger
// interfaces expected by third-party libraries (cron, migrate).
package logger

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// Logger wraps a slog.Logger scoped to one component.
type Logger struct {
	log     *slog.Logger
	verbose bool
}

// New returns a component-scoped logger. A nil base falls back to slog.Default.
func New(base *slog.Logger, component string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{log: base.With("component", component)}
}

// WithVerbose toggles verbose output for libraries that ask for it.
func (l *Logger) WithVerbose(v bool) *Logger {
	return &Logger{log: l.log, verbose: v}
}

// Printf logs a formatted message at info level.
func (l *Logger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Verbose reports whether debug chatter is wanted.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// Info logs key/value pairs at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log.Info(msg, keysAndValues...)
}

// Error logs key/value pairs with the error attached.
func (l *Logger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

// Std returns a stdlib logger writing through the same handler.
func (l *Logger) Std() *log.Logger {
	return slog.NewLogLogger(l.log.Handler(), slog.LevelError)
}
