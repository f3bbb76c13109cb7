// Package ratelimit throttles clients with one token bucket each.
package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an untouched bucket is kept before cleanup drops it.
const idleTTL = 10 * time.Minute

type Config struct {
	// RequestsPerMinute is both the sustained rate and the burst size.
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a bucket per client key, usually the client IP.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	every    rate.Limit
	burst    int
	interval time.Duration
	now      func() time.Time
	hits     int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts the cleanup goroutine; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		every:    rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:    cfg.RequestsPerMinute,
		interval: cfg.CleanupInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow spends one token for key.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take spends a token, or reports how long until one is available.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, found := l.buckets[key]
	if !found {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		atomic.AddInt64(&l.hits, 1)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) cleanupLoop() {
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.dropIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idleTTL)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&l.hits),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware limits requests for which applies returns true; a nil applies
// limits everything. Rejected requests get 429 with Retry-After in seconds.
func (l *Limiter) Middleware(extractKey func(*http.Request) string, applies func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies != nil && !applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := l.take(extractKey(r)); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Mutating reports whether r changes state.
func Mutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
