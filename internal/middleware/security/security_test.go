package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(ok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/meta", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/meta", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(ok)

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"no origin", http.MethodGet, "", false, http.StatusOK, ""},
		{"allowed origin", http.MethodGet, "https://app.example", false, http.StatusOK, "https://app.example"},
		{"other origin", http.MethodGet, "https://evil.example", false, http.StatusOK, ""},
		{"preflight allowed", http.MethodOptions, "https://app.example", true, http.StatusNoContent, "https://app.example"},
		{"preflight denied", http.MethodOptions, "https://evil.example", true, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/transactions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil, "100.64.0.0/10", "bogus")

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.7:5555", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"untrusted proxy ignored", "203.0.113.7:5555", "198.51.100.1", "203.0.113.7"},
		{"garbage forwarded value", "10.0.0.2:80", "not-an-ip", "10.0.0.2"},
		{"configured proxy forwards", "100.64.1.1:80", "198.51.100.9", "198.51.100.9"},
		{"ipv6 loopback proxy", "[::1]:80", "2001:db8::1", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Fatalf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(nil)
	bad := httptest.NewRequest(http.MethodGet, "/.env", nil)
	if !d.DetectSuspiciousRequest(bad) {
		t.Fatal("/.env should be suspicious")
	}
	good := httptest.NewRequest(http.MethodGet, "/api/transactions/6f1c2d7e-1111-4a2b-9c3d-0123456789ab", nil)
	if d.DetectSuspiciousRequest(good) {
		t.Fatal("ordinary API path flagged")
	}
	if d.GetMetrics().SuspiciousRequests != 1 {
		t.Fatalf("metrics = %+v", d.GetMetrics())
	}
}

func TestDetectorMiddlewareCountsAndPassesThrough(t *testing.T) {
	d := NewDetector(nil)
	h := d.Middleware(ok)

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		flag   bool
	}{
		{"plain list", http.MethodGet, "/api/transactions?mode=UPI", "curl/8.0", false},
		{"git probe", http.MethodGet, "/.git/config", "", true},
		{"injection in query", http.MethodGet, "/api/stats/range?mode=1%20UNION%20SELECT", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	var want int64
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		req.Header.Set("User-Agent", tt.ua)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: request was blocked with %d", tt.name, rr.Code)
		}
		if tt.flag {
			want++
		}
		if got := d.GetMetrics().SuspiciousRequests; got != want {
			t.Fatalf("%s: suspicious = %d, want %d", tt.name, got, want)
		}
	}
}
