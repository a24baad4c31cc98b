// Package logging provides structured logging for the gradfit service.
package logging

import (
	"context"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel names a severity accepted by New and NewConsole.
type LogLevel string

// Severities in increasing order. Progress lines from the solvers are
// logged at DebugLevel and InfoLevel.
const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	FatalLevel LogLevel = "FATAL"
)

func (lvl LogLevel) zapLevel() zapcore.Level {
	switch lvl {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a field-map front end over a zap logger.
type Logger struct {
	z *zap.Logger
}

// New logs JSON entries at or above level to output.
func New(level LogLevel, output io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(output),
		level.zapLevel(),
	)
	return newLogger(zap.New(core))
}

func newLogger(z *zap.Logger) *Logger {
	return &Logger{z: z.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))}
}

// Zap returns the underlying zap logger, carrying the fields added so far.
// Library packages take this form.
func (l *Logger) Zap() *zap.Logger {
	return l.z.WithOptions(zap.AddCallerSkip(-1))
}

// WithFields returns a child logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{z: l.z.With(toZapFields(fields)...)}
}

// WithField is WithFields for a single key.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With(zap.Any(key, value))}
}

// Debug, Info, Warn and Error take an optional field map.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.z.Debug(msg, firstFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.z.Info(msg, firstFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.z.Warn(msg, firstFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.z.Error(msg, firstFields(fields)...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.z.Fatal(msg, firstFields(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func firstFields(fields []map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	return toZapFields(fields[0])
}

// toZapFields converts a field map in key order so output is stable.
func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// CtxLogger is the request-scoped logger stored by Middleware.
type CtxLogger struct {
	*Logger
}

// FromContext returns the request logger, or an info-level stderr logger
// when ctx carries none.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext stores l in ctx.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
