package log

import "context"

type ctxLoggerKey struct{}

// AddToContext returns a copy of ctx carrying l.
func AddToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

// GetFromContext returns the logger stored in ctx or the default logger.
func GetFromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLoggerKey{}).(*Logger); ok {
			return l
		}
	}
	return Default()
}
