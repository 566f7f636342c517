// Package corelog provides the process-global logging and panic backends
// used throughout the retrojsvice core. The vice plugin is loaded as a
// shared library, so both the logger and the panic handler are process-wide
// singletons rather than values threaded through every call; this mirrors
// common.hpp's setLogCallback/setPanicCallback in the original C++ source.
package corelog

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Level identifies the severity of a log message.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogFunc receives a fully formatted log message along with its level and
// source location.
type LogFunc func(level Level, location string, msg string)

// PanicFunc receives a fully formatted panic message along with its source
// location. It is called immediately before the process aborts.
type PanicFunc func(location string, msg string)

var (
	mu          sync.Mutex
	logBackend  LogFunc
	panicBackend PanicFunc
	base        = mustBuildBaseLogger()
)

func mustBuildBaseLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "" // timestamps are noise in interactive use
	logger, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op logger is safer than panicking during
		// package init; stderr writes below still function.
		return zap.NewNop()
	}
	return logger
}

// SetLogCallback installs a custom log backend. Passing nil reverts to the
// default (zap console encoder to stderr).
func SetLogCallback(f LogFunc) {
	mu.Lock()
	defer mu.Unlock()
	logBackend = f
}

// SetPanicCallback installs a custom panic backend. Passing nil reverts to
// the default (print to stderr and exit the process).
func SetPanicCallback(f PanicFunc) {
	mu.Lock()
	defer mu.Unlock()
	panicBackend = f
}

func location(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func emit(level Level, loc, msg string) {
	mu.Lock()
	f := logBackend
	mu.Unlock()

	if f != nil {
		f(level, loc, msg)
		return
	}

	switch level {
	case LevelError:
		base.Error(msg, zap.String("loc", loc))
	case LevelWarning:
		base.Warn(msg, zap.String("loc", loc))
	default:
		base.Info(msg, zap.String("loc", loc))
	}
}

// Info logs an informational message with the caller's source location.
func Info(args ...any) {
	emit(LevelInfo, location(1), fmt.Sprint(args...))
}

// Warning logs a warning message with the caller's source location.
func Warning(args ...any) {
	emit(LevelWarning, location(1), fmt.Sprint(args...))
}

// Error logs an error message with the caller's source location.
func Error(args ...any) {
	emit(LevelError, location(1), fmt.Sprint(args...))
}

// Panic reports an irrecoverable programming error: it notifies the panic
// backend, if one is installed, then raises a Go panic — like the
// original's PANIC/REQUIRE macros, a failed invariant here means the
// process cannot continue safely. Component C8's exported entry points
// recover() this at the C ABI boundary, forward it to the host's panic
// callback, and terminate the process there; everywhere else (including
// tests) it behaves like an ordinary Go panic.
func Panic(args ...any) {
	loc := location(1)
	msg := fmt.Sprint(args...)
	notifyPanicBackend(loc, msg)
	panic(fmt.Sprintf("PANIC at %s: %s", loc, msg))
}

// Require panics with the given message if cond is false, mirroring the
// REQUIRE(cond) macro.
func Require(cond bool, args ...any) {
	if !cond {
		loc := location(1)
		msg := "requirement failed"
		if len(args) > 0 {
			msg = fmt.Sprint(args...)
		}
		notifyPanicBackend(loc, msg)
		panic(fmt.Sprintf("PANIC at %s: %s", loc, msg))
	}
}

func notifyPanicBackend(loc, msg string) {
	mu.Lock()
	f := panicBackend
	mu.Unlock()

	if f != nil {
		f(loc, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "PANIC at %s: %s\n", loc, msg)
}
