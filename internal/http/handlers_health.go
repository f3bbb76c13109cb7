package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	transactionsUpdated int64
	transactionsDeleted int64
	reportsExported     int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the transaction store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}
	if s.listCache != nil {
		checks["cache"] = map[string]any{
			"entries": s.listCache.Size(),
			"status":  "ok",
		}
	}

	NewJSONResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter(w, "http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter(w, "transactions_created_total", "Transactions created through the API", atomic.LoadInt64(&s.metrics.transactionsCreated))
	counter(w, "transactions_updated_total", "Transactions updated through the API", atomic.LoadInt64(&s.metrics.transactionsUpdated))
	counter(w, "transactions_deleted_total", "Transactions deleted through the API", atomic.LoadInt64(&s.metrics.transactionsDeleted))
	counter(w, "reports_exported_total", "Reports rendered by the export endpoint", atomic.LoadInt64(&s.metrics.reportsExported))
	counter(w, "rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter(w, "suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)

	if s.listCache != nil {
		hits, misses := s.listCache.Stats()
		counter(w, "cache_hits_total", "Transaction list cache hits", int64(hits))
		counter(w, "cache_misses_total", "Transaction list cache misses", int64(misses))
		gauge(w, "cache_entries", "Current transaction list cache entries", float64(s.listCache.Size()))
	}

	gauge(w, "active_rate_limit_clients", "Currently tracked rate limit clients", float64(s.limiter.ActiveClients()))
	gauge(w, "uptime_seconds", "Application uptime in seconds", time.Since(s.metrics.uptime).Seconds())
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
}

func gauge(w http.ResponseWriter, name, help string, v float64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %.0f\n\n", name, help, name, name, v)
}
