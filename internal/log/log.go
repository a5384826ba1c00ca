// Package log wraps zap with a process-wide default logger and field helpers.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Level is a logging priority.
type Level = zapcore.Level

// Field is a structured log field.
type Field = zap.Field

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// Logger is a named, leveled structured logger.
type Logger struct {
	l     *zap.Logger
	level zap.AtomicLevel
}

// Option configures a Logger.
type Option = zap.Option

// WithCaller toggles caller annotation.
func WithCaller(enabled bool) Option { return zap.WithCaller(enabled) }

// AddCallerSkip skips extra stack frames when annotating the caller.
func AddCallerSkip(skip int) Option { return zap.AddCallerSkip(skip) }

// WithFilter restricts output to entries matching zapfilter rules such as
// "*:persist.* warn+:*". An empty or invalid rule string disables filtering.
func WithFilter(rules string) Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		if rules == "" {
			return core
		}
		filter, err := zapfilter.ParseRules(rules)
		if err != nil {
			return core
		}
		return zapfilter.NewFilteringCore(core, filter)
	})
}

// New creates a JSON logger writing to w.
func New(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return newLogger(zapcore.NewJSONEncoder(cfg), w, level, opts...)
}

// DevLogger creates a human readable console logger writing to w.
func DevLogger(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return newLogger(zapcore.NewConsoleEncoder(cfg), w, level, opts...)
}

func newLogger(enc zapcore.Encoder, w io.Writer, level Level, opts ...Option) *Logger {
	if w == nil {
		w = os.Stderr
	}
	atom := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(enc, zapcore.AddSync(w), atom)
	return &Logger{l: zap.New(core, opts...), level: atom}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{l: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...), level: l.level}
}

// SetLevel changes the level of l and all loggers derived from it.
func (l *Logger) SetLevel(level Level) { l.level.SetLevel(level) }

// Enabled reports whether level is enabled.
func (l *Logger) Enabled(level Level) bool { return l.level.Enabled(level) }

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.l.Sync() }

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.l }

var (
	mu  sync.RWMutex
	std = DevLogger(os.Stderr, InfoLevel)
)

// Default returns the process-wide logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// ResetDefault replaces the process-wide logger.
func ResetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	return zapcore.ParseLevel(s)
}

func Debug(msg string, fields ...Field) { Default().l.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { Default().l.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { Default().l.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { Default().l.Error(msg, fields...) }

func String(key, val string) Field                 { return zap.String(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Uint64(key string, val uint64) Field          { return zap.Uint64(key, val) }
func Float64(key string, val float64) Field        { return zap.Float64(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Any(key string, val any) Field                { return zap.Any(key, val) }
func ErrorField(err error) Field                   { return zap.Error(err) }
