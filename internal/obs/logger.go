// File: internal/obs/logger.go
// Package obs provides the minimal logging facade used by all components.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package obs

import (
	"log"
	"os"
	"sync/atomic"
)

// Level classifies log lines.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal logging interface for observability.
type Logger interface {
	Logf(level Level, format string, args ...any)
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(Level, string, ...any) {}

// StdLogger adapts the standard library logger.
type StdLogger struct {
	L   *log.Logger
	Min Level
}

func (s StdLogger) Logf(level Level, format string, args ...any) {
	if s.L == nil || level < s.Min {
		return
	}
	s.L.Printf("[%s] "+format, append([]any{level.String()}, args...)...)
}

// holder keeps the stored type constant so implementations of any
// concrete type can be swapped in.
type holder struct {
	l Logger
}

var current atomic.Value // holder

func init() {
	current.Store(holder{l: StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: Info}})
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	current.Store(holder{l: l})
}

// Logf writes through the process-wide logger.
func Logf(level Level, format string, args ...any) {
	current.Load().(holder).l.Logf(level, format, args...)
}

func Debugf(format string, args ...any) { Logf(Debug, format, args...) }
func Infof(format string, args ...any)  { Logf(Info, format, args...) }
func Warnf(format string, args ...any)  { Logf(Warn, format, args...) }
func Errorf(format string, args ...any) { Logf(Error, format, args...) }
