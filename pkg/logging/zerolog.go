package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	mu    sync.RWMutex
	zl    zerolog.Logger
	level Level
}

// NewJSONLogger writes one JSON object per entry to w.
func NewJSONLogger(w io.Writer, level Level) *ZeroLogger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &ZeroLogger{zl: zl.Level(level.zerolog()), level: level}
}

// NewConsoleLogger writes human-readable entries to w.
func NewConsoleLogger(w io.Writer, level Level) *ZeroLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(cw).With().Timestamp().Logger()
	return &ZeroLogger{zl: zl.Level(level.zerolog()), level: level}
}

// New returns a logger for the given format ("json" or "console") writing to
// stderr.
func New(format string, level Level) *ZeroLogger {
	if format == "console" {
		return NewConsoleLogger(os.Stderr, level)
	}
	return NewJSONLogger(os.Stderr, level)
}

func (l *ZeroLogger) logger() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

func (l *ZeroLogger) log(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(pairs(fields))
	}
	ev.Msg(msg)
}

func (l *ZeroLogger) Debug(msg string, fields ...Field) {
	zl := l.logger()
	l.log(zl.Debug(), msg, fields)
}

func (l *ZeroLogger) Info(msg string, fields ...Field) {
	zl := l.logger()
	l.log(zl.Info(), msg, fields)
}

func (l *ZeroLogger) Warn(msg string, fields ...Field) {
	zl := l.logger()
	l.log(zl.Warn(), msg, fields)
}

func (l *ZeroLogger) Error(msg string, fields ...Field) {
	zl := l.logger()
	l.log(zl.Error(), msg, fields)
}

// With creates a child logger with the given fields pre-set.
func (l *ZeroLogger) With(fields ...Field) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &ZeroLogger{
		zl:    l.zl.With().Fields(pairs(fields)).Logger(),
		level: l.level,
	}
}

// SetLevel sets the minimum level.
func (l *ZeroLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.zl = l.zl.Level(level.zerolog())
}

// GetLevel returns the minimum level.
func (l *ZeroLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// pairs flattens fields into zerolog's ordered key-value form.
func pairs(fields []Field) []any {
	kv := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
