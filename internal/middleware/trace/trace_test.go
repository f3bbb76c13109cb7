package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "spendlog/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Component: "app", Handler: slog.NewTextHandler(&buf, nil)})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })

	var inside string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inside = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/meta", nil))

	if !strings.HasPrefix(inside, "req_") {
		t.Fatalf("request id = %q", inside)
	}
	if rr.Header().Get(RequestIDHeader) != inside {
		t.Fatalf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), inside)
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "request_id=" + inside, "handler ran"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestMiddlewareKeepsUpstreamID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "edge-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != "edge-123" {
		t.Fatalf("upstream id not kept: %q", rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces <script>")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.HasPrefix(rr.Header().Get(RequestIDHeader), "req_") {
		t.Fatalf("unsafe upstream id should be replaced, got %q", rr.Header().Get(RequestIDHeader))
	}
}
