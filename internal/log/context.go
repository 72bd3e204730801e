package log

import (
	"context"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts the logger stored by NewContext, or a default one.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok && logger != nil {
		return logger
	}
	return New(DefaultConfig())
}

// LogOperation logs the outcome of op, with its duration since start.
func (l *Logger) LogOperation(ctx context.Context, op string, start time.Time, err error, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithOperation(op)
	fields[FieldDuration] = time.Since(start).Milliseconds()
	fields[FieldSuccess] = err == nil
	if err != nil {
		fields.WithError(err, ErrorTypeInternal)
		l.ErrorContext(ctx, "Operation failed", fields.ToSlice()...)
		return
	}
	l.DebugContext(ctx, "Operation completed", fields.ToSlice()...)
}
