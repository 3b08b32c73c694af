// Package applog provides the leveled logger the voxel storage core is
// handed at construction (spec.md §7: "the core logs no strings on its
// own" — only the host, via this interface, decides where log lines go).
package applog

import (
	"io"
	"log"
	"os"
	"sync"
)

// Logger is the leveled logging interface every package that wants to
// report diagnostics depends on, never a concrete *log.Logger directly.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger backs Logger with one *log.Logger per severity and
// syslog-style line prefixes, grounded on cc-backend's pkg/log package.
type stdLogger struct {
	mu    sync.Mutex
	debug bool

	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errLog   *log.Logger
}

// New builds a Logger writing to w, with debug lines gated by debug.
func New(w io.Writer, debug bool) Logger {
	flags := log.LstdFlags
	return &stdLogger{
		debug:    debug,
		debugLog: log.New(w, "<7>[DEBUG]   ", flags),
		infoLog:  log.New(w, "<6>[INFO]    ", flags),
		warnLog:  log.New(w, "<4>[WARNING] ", flags),
		errLog:   log.New(w, "<3>[ERROR]   ", flags),
	}
}

// NewStderr is the common case: log to the process's standard error.
func NewStderr(debug bool) Logger { return New(os.Stderr, debug) }

func (l *stdLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *stdLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *stdLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.debugLog.Printf(format, args...)
}

func (l *stdLogger) Infof(format string, args ...any)  { l.infoLog.Printf(format, args...) }
func (l *stdLogger) Warnf(format string, args ...any)  { l.warnLog.Printf(format, args...) }
func (l *stdLogger) Errorf(format string, args ...any) { l.errLog.Printf(format, args...) }

type nopLogger struct{}

// Nop is a Logger that discards everything, for tests and embedders that
// don't want log output.
func Nop() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(bool)                     {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}
