package security

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	applog "spendlog/internal/log"
)

// Private and loopback ranges are trusted to set forwarding headers.
var defaultProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
}

// Lowercased substrings that never appear in a legitimate API call.
var probeMarkers = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}

const (
	maxURLLength  = 2048
	maxForwarders = 6
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags scanner traffic and resolves the client address behind
// trusted proxies.
type Detector struct {
	suspicious int64
	invalidIP  int64
	proxies    []netip.Prefix
	logger     *applog.Logger
}

// NewDetector trusts the private ranges plus extra. Entries that do not
// parse as CIDRs are skipped; config validation reports them.
func NewDetector(logger *applog.Logger, extra ...string) *Detector {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	d := &Detector{
		proxies: append([]netip.Prefix(nil), defaultProxies...),
		logger:  logger.WithComponent(applog.ComponentSecurity),
	}
	for _, cidr := range extra {
		if p, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			d.proxies = append(d.proxies, p.Masked())
		}
	}
	return d
}

// DetectSuspiciousRequest reports probe paths, scanner user agents, odd
// methods and oversized URLs.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if reason := suspicionOf(r); reason != "" {
		atomic.AddInt64(&d.suspicious, 1)
		return true
	}
	return false
}

func suspicionOf(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
		return "method"
	}
	if len(r.URL.String()) > maxURLLength {
		return "url_length"
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, m := range probeMarkers {
		if strings.Contains(target, m) {
			return "probe"
		}
	}
	ua := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner"
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwarders {
		return "forwarding_chain"
	}
	return ""
}

// Middleware logs suspicious requests and lets them through; auth and
// routing reject them anyway.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := suspicionOf(r); reason != "" {
			atomic.AddInt64(&d.suspicious, 1)
			d.logger.WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		atomic.AddInt64(&d.invalidIP, 1)
		return host
	}
	if !d.trusted(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a.String()
		}
	}
	if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return a.String()
	}
	return host
}

func (d *Detector) trusted(a netip.Addr) bool {
	for _, p := range d.proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
	}
}
