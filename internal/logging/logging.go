// Package logging provides the level-tagged stderr logger shared by every
// sonarsweep component.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	infoColor  = color.New(color.FgCyan)
	debugColor = color.New(color.FgHiBlack)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
)

// Logger writes "[LEVEL] message" lines. A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	debug   bool
	colored bool
}

// Options configures a Logger.
type Options struct {
	Verbose bool
	Debug   bool
	// Color forces coloured level tags; when false, tags are plain.
	Color bool
}

// New creates a Logger writing to out.
func New(out io.Writer, opts Options) *Logger {
	return &Logger{
		out:     out,
		verbose: opts.Verbose || opts.Debug,
		debug:   opts.Debug,
		colored: opts.Color,
	}
}

// Stderr creates a Logger on os.Stderr, colouring tags when stderr is a terminal.
func Stderr(verbose, debug bool) *Logger {
	return New(os.Stderr, Options{
		Verbose: verbose,
		Debug:   debug,
		Color:   term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger {
	return New(io.Discard, Options{})
}

// Infof logs progress messages. Always shown.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.print(infoColor, "INFO", format, args...)
}

// Verbosef logs messages shown only in verbose mode.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.print(infoColor, "INFO", format, args...)
}

// Debugf logs messages shown only in debug mode.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || !l.debug {
		return
	}
	l.print(debugColor, "DEBUG", format, args...)
}

// Warnf logs a degraded but recoverable condition.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.print(warnColor, "WARN", format, args...)
}

// Errorf logs a failure.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.print(errorColor, "ERROR", format, args...)
}

// IsVerbose reports whether verbose output is enabled.
func (l *Logger) IsVerbose() bool {
	return l != nil && l.verbose
}

// IsDebug reports whether debug output is enabled.
func (l *Logger) IsDebug() bool {
	return l != nil && l.debug
}

func (l *Logger) print(c *color.Color, level, format string, args ...interface{}) {
	if l == nil || l.out == nil {
		return
	}

	tag := "[" + level + "]"
	if l.colored {
		tag = c.Sprint(tag)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, tag+" "+format+"\n", args...)
}
