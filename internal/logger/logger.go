package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	personIDKey
)

// Init настраивает глобальный логгер: уровень (debug, info, warn, error) и формат (json или text)
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler).With("service", "fastpayment")

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// parseLevel falls back to info for unknown names.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Get возвращает глобальный логгер
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return slog.Default()
	}
	return l
}

// ContextWithRequestID stores the request id for later log lines.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ContextWithPersonID stores the authenticated person id for log lines.
func ContextWithPersonID(ctx context.Context, personID int64) context.Context {
	return context.WithValue(ctx, personIDKey, personID)
}

// WithContext добавляет к логгеру request_id и person_id из контекста
func WithContext(ctx context.Context) *slog.Logger {
	l := Get()
	if ctx == nil {
		return l
	}
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if personID, ok := ctx.Value(personIDKey).(int64); ok {
		l = l.With("person_id", personID)
	}
	return l
}

func WithFields(fields ...any) *slog.Logger {
	return Get().With(fields...)
}

func NewRequestID() string {
	return uuid.NewString()
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
