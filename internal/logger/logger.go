// Package logger provides leveled, tag-prefixed logging for eidrag.
// Debug output is only written when verbose mode is enabled; Info, Warn
// and Error are always written.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	std     = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// Logger writes lines tagged with a subsystem name, e.g. "[rag-index]".
type Logger struct {
	tag string
}

// New returns a Logger for the given subsystem tag.
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

// Debug prints a message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !IsVerbose() {
		return
	}
	l.write("DEBUG", format, args...)
}

// Info prints an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.write("INFO", format, args...)
}

// Warn prints a warning.
func (l *Logger) Warn(format string, args ...any) {
	l.write("WARN", format, args...)
}

// Error prints an error.
func (l *Logger) Error(format string, args ...any) {
	l.write("ERROR", format, args...)
}

func (l *Logger) write(level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	std.Printf("[%s] [%s] %s", level, l.tag, fmt.Sprintf(format, args...))
}
