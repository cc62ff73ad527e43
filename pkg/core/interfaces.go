package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Logger interface for transfer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// DefaultLogger implements Logger by writing to stdout. Integer counts are
// printed with digit grouping.
type DefaultLogger struct {
	printer *message.Printer
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() Logger {
	return &DefaultLogger{printer: message.NewPrinter(language.English)}
}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	dl.printer.Printf(format, args...)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Printf(format string, args ...interface{}) {}

// LeveledLogger adds a debug level on top of a Logger
type LeveledLogger struct {
	Logger
	verbose bool
}

// NewLeveledLogger wraps logger; Debugf only prints when verbose is set
func NewLeveledLogger(logger Logger, verbose bool) *LeveledLogger {
	if logger == nil {
		logger = NopLogger{}
	}
	return &LeveledLogger{Logger: logger, verbose: verbose}
}

// Debugf prints only in verbose mode
func (l *LeveledLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		l.Printf(format, args...)
	}
}
