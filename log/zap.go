package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type (
	Level  = zapcore.Level
	Field  = zap.Field
	Option = zap.Option
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip
	AddStacktrace = zap.AddStacktrace
)

// New creates a logger writing json lines to writer.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return newLogger(zapcore.NewJSONEncoder(cfg), writer, level, opts...)
}

// DevLogger creates a logger with human readable console output.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z0700")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(zapcore.NewConsoleEncoder(cfg), writer, level, opts...)
}

func newLogger(enc zapcore.Encoder, writer io.Writer, level Level, opts ...Option) *Logger {
	atomic := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), atomic)
	return &Logger{l: zap.New(core, opts...), level: atomic}
}

// ParseLevel converts names like "debug" or "warn" into a Level.
func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// WithFilter returns a logger which only emits entries matching the given
// zapfilter rules, e.g. "*:stats.* warn+:*".
func (l *Logger) WithFilter(rules string) (*Logger, error) {
	if rules == "" {
		return l, nil
	}
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, err
	}
	return &Logger{
		l: l.l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapfilter.NewFilteringCore(c, filter)
		})),
		level: l.level,
	}, nil
}
