// Package logging owns the process-wide logger and its printf-style helpers.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, DefaultConfig())
)

// Apply replaces the process-wide logger. Configure calls it once per process;
// tests and binaries may call it directly to redirect output.
func Apply(cfg Config) {
	ApplyTo(os.Stderr, cfg)
}

// ApplyTo is Apply with an explicit destination.
func ApplyTo(out io.Writer, cfg Config) {
	l := newLogger(out, cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}

func newLogger(out io.Writer, cfg Config) zerolog.Logger {
	w := out
	if !cfg.JSON {
		cw := zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		w = cw
	}
	ctx := zerolog.New(w).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Logger returns the current process-wide logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Tracef(format string, args ...any) { emit(zerolog.TraceLevel, format, args...) }
func Debugf(format string, args ...any) { emit(zerolog.DebugLevel, format, args...) }
func Infof(format string, args ...any)  { emit(zerolog.InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { emit(zerolog.WarnLevel, format, args...) }
func Errf(format string, args ...any)   { emit(zerolog.ErrorLevel, format, args...) }

// Logf writes at no level so the line survives any level filter above disabled.
func Logf(format string, args ...any) {
	l := Logger()
	l.Log().Msg(fmt.Sprintf(format, args...))
}

func emit(level zerolog.Level, format string, args ...any) {
	l := Logger()
	l.WithLevel(level).Msg(fmt.Sprintf(format, args...))
}
