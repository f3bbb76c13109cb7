package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger writes the fixed-shape events the HTTP layer emits.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP)
	sl.logger.DebugContext(ctx, "HTTP request started", f.ToSlice()...)
}

// LogHTTPEnd logs 4xx at warn and 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, durationMs, status < 400).
		WithClientIP(clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", f.ToSlice()...)
}

// LogTransactionWritten logs a successful create or update.
func (sl *StructuredLogger) LogTransactionWritten(ctx context.Context, op, userID, id string, amountPaise int64, mode, category string) {
	f := NewFields().
		WithTransaction(id, amountPaise, mode, category).
		WithUser(userID).
		WithOperation(op)
	sl.logger.WithComponent(ComponentTransaction).InfoContext(ctx, "Transaction saved", f.ToSlice()...)
}

// LogFailure logs err with the operation that produced it.
func (sl *StructuredLogger) LogFailure(ctx context.Context, msg, op string, err error, f LogFields) {
	if f == nil {
		f = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, f.WithError(err).WithOperation(op).ToSlice()...)
}
