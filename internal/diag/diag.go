// Package diag provides a minimal leveled logger for the shyll CLI's -debug
// flag. No structured-logging library appears anywhere in the retrieved
// example corpus (mna-nenuphar and its neighbors both print diagnostics with
// plain fmt/log calls), so this is grounded on the standard library's log
// package rather than an ecosystem dependency; see DESIGN.md.
package diag

import (
	"io"
	"log"
)

// Logger writes Debugf messages to its writer only when enabled, and always
// writes Errorf messages.
type Logger struct {
	enabled bool
	l       *log.Logger
}

// New returns a Logger writing to w. Debug output is suppressed unless
// enabled is true.
func New(w io.Writer, enabled bool) *Logger {
	return &Logger{enabled: enabled, l: log.New(w, "shyll: ", 0)}
}

// Debugf logs a formatted message if debug output is enabled.
func (d *Logger) Debugf(format string, args ...interface{}) {
	if d == nil || !d.enabled {
		return
	}
	d.l.Printf(format, args...)
}

// Errorf always logs a formatted message, regardless of debug mode.
func (d *Logger) Errorf(format string, args ...interface{}) {
	if d == nil {
		return
	}
	d.l.Printf(format, args...)
}
