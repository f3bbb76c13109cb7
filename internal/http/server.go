package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendlog/internal/auth"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
)

// TransactionService is the application surface the handlers drive.
type TransactionService interface {
	List(ctx context.Context, userID string) ([]core.Transaction, error)
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	Create(ctx context.Context, u core.User, in core.TransactionInput) (core.Transaction, error)
	Update(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to sane defaults.
type Options struct {
	Location    *time.Location
	RateLimit   int
	CORSOrigins []string
	Logger      *applog.Logger
	// TrustedProxies extends the private ranges whose X-Forwarded-For is believed.
	TrustedProxies []string
	// ListCache is only read by the health and metrics endpoints.
	ListCache *cache.LRUCache[[]core.Transaction]
}

// Server wraps http.Server with the API routes and their middleware.
type Server struct {
	http.Server

	svc       TransactionService
	loc       *time.Location
	now       func() time.Time
	logger    *applog.Logger
	listCache *cache.LRUCache[[]core.Transaction]

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	metrics      *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc TransactionService, verifier *auth.Verifier, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimit > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimit
	}

	detector := security.NewDetector(logger, opts.TrustedProxies...)
	s := &Server{
		svc:       svc,
		loc:       opts.Location,
		now:       time.Now,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		listCache: opts.ListCache,
		limiter:   ratelimit.NewLimiter(rlCfg),
		tracer:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector:  detector,
		metrics:   newAppMetrics(),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.CORS(opts.CORSOrigins))
	r.Use(detector.Middleware)
	r.Use(s.limiter.Middleware(detector.ExtractClientIP, ratelimit.Mutating))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", s.handleMeta)

		r.Group(func(r chi.Router) {
			r.Use(verifier.Middleware)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/stats/monthly", s.handleMonthlyStats)
			r.Get("/stats/range", s.handleRangeStats)
			r.Get("/reports/export", s.handleExport)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background routines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
