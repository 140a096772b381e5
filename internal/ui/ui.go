// Package ui writes progress lines for the fleet phases.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold     = color.New(color.Bold).SprintFunc()
	Dim      = color.New(color.Faint).SprintFunc()
	Green    = color.New(color.FgGreen).SprintFunc()
	Red      = color.New(color.FgRed).SprintFunc()
	Yellow   = color.New(color.FgYellow).SprintFunc()
	BoldCyan = color.New(color.Bold, color.FgCyan).SprintFunc()
)

// Logger writes lines to a single writer. It is safe for concurrent use,
// so workers of a parallel run can share one.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// New returns a Logger writing to w. Debugf lines are dropped unless verbose.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{w: w, verbose: verbose}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, false)
}

// Verbose reports whether debug lines are written.
func (l *Logger) Verbose() bool { return l.verbose }

func (l *Logger) line(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, strings.TrimRight(s, "\n"))
}

// Printf writes a plain line.
func (l *Logger) Printf(format string, args ...any) {
	l.line(fmt.Sprintf(format, args...))
}

// Debugf writes a line only in verbose mode.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line(Dim(fmt.Sprintf(format, args...)))
}

// Successf writes a line prefixed with a green check mark.
func (l *Logger) Successf(format string, args ...any) {
	l.line(Green("✅ ") + fmt.Sprintf(format, args...))
}

// Failf writes a line prefixed with a red cross.
func (l *Logger) Failf(format string, args ...any) {
	l.line(Red("❌ ") + fmt.Sprintf(format, args...))
}

// Warnf writes a warning line.
func (l *Logger) Warnf(format string, args ...any) {
	l.line(Yellow("warning: ") + fmt.Sprintf(format, args...))
}

// Errorf writes an error line.
func (l *Logger) Errorf(format string, args ...any) {
	l.line(Red("error: ") + fmt.Sprintf(format, args...))
}

// Section writes a blank line followed by a highlighted heading.
func (l *Logger) Section(format string, args ...any) {
	l.line("\n" + BoldCyan("=== "+fmt.Sprintf(format, args...)+" ==="))
}

// Writer exposes the underlying writer for callers streaming captured output.
func (l *Logger) Writer() io.Writer { return lockedWriter{l} }

type lockedWriter struct{ l *Logger }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.l.w.Write(p)
}
