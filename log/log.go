package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

type Logger struct {
	l     *zap.Logger
	level zap.AtomicLevel
}

var (
	mu  sync.RWMutex
	std = New(os.Stderr, InfoLevel, WithCaller(true), AddCallerSkip(1))
)

// Default returns the process wide logger
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// ResetDefault replaces the process wide logger.
// Not meant to be called concurrently with logging calls.
func ResetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...), level: l.level}
}

func (l *Logger) Level() Level {
	return l.level.Level()
}

func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.l.Fatal(msg, fields...)
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

func Debug(msg string, fields ...Field) {
	Default().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	Default().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Default().Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	Default().Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Default().Fatal(msg, fields...)
}

func Sync() error {
	return Default().Sync()
}
