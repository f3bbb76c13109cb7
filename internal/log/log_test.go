package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newBuffered(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Component: component, Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})}), &buf
}

func TestLoggerAddsComponent(t *testing.T) {
	l, buf := newBuffered("worker")
	l.Info("hello", FieldUserID, "u1")
	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestWithComponentReplacesTag(t *testing.T) {
	l, buf := newBuffered("app")
	l.With(FieldRequestID, "req_1").WithComponent("http").Info("tagged")
	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("expected a single http component: %q", out)
	}
	if !strings.Contains(out, "request_id=req_1") {
		t.Fatalf("attributes added before retagging were lost: %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l, _ := newBuffered("app")
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected the stored logger back")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("missing logger should fall back to default")
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tt := range tests {
		l, buf := newBuffered("http")
		r := httptest.NewRequest(http.MethodGet, "/api/transactions?mode=UPI", nil)
		NewStructuredLogger(l).LogHTTPEnd(context.Background(), r, tt.status, 3, "10.0.0.1")
		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "mode=UPI") {
			t.Fatalf("status %d: unexpected line %q", tt.status, out)
		}
	}
}

func TestLogTransactionWrittenOmitsDescription(t *testing.T) {
	l, buf := newBuffered("http")
	NewStructuredLogger(l).LogTransactionWritten(context.Background(), OpCreate, "u1", "t1", 1250, "UPI", "FOOD")
	out := buf.String()
	for _, want := range []string{"component=transaction", "transaction_id=t1", "amount_paise=1250", "operation=create"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestLogFailure(t *testing.T) {
	l, buf := newBuffered("app")
	NewStructuredLogger(l).LogFailure(context.Background(), "boom", OpRead, errors.New("bad"), NewFields().WithUser("u1"))
	out := buf.String()
	for _, want := range []string{"error=bad", "operation=read", "user_id=u1", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
