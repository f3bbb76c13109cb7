// Package log is the slog setup shared by the server, the worker and the CLIs.
// Every line carries a component attribute; request-scoped loggers travel on
// the context.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with a component. The untagged base is kept
// so WithComponent replaces the tag instead of stacking a second one.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the default text handler on stdout.
	Handler slog.Handler
}

// ParseLevel maps LOG_LEVEL values (debug, info, warn, error) to a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})
	}
	return tagged(slog.New(h), cfg.Component)
}

func tagged(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying extra attributes, keeping the component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent retags the logger; attributes added with With survive.
func (l *Logger) WithComponent(component string) *Logger {
	return tagged(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger's tagged handler as the slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

type ctxKey struct{}

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or one built on the slog
// default tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return tagged(slog.Default(), "unknown")
}
