package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response hardening headers. Empty values are not sent.
type HeadersConfig struct {
	CSP                   string
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	CrossOriginOpener     string
	CrossOriginResource   string
	// CacheControl defaults to no-store since every body is per-user data.
	CacheControl string
}

// DefaultHeadersConfig suits a JSON API that serves no markup.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-site",
		CacheControl:          "no-store",
	}
}

type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	pairs := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", cfg.FrameOptions},
		{"Content-Security-Policy", cfg.CSP},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResource},
		{"Cache-Control", cfg.CacheControl},
	}
	m := &HeadersMiddleware{}
	for _, p := range pairs {
		if p[1] != "" {
			m.static = append(m.static, p)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		m.hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
	}
	return m
}

// Middleware sets the headers before the handler runs so handlers may
// override them (the metadata endpoint relaxes Cache-Control). HSTS is only
// sent over TLS.
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for _, p := range h.static {
			hdr.Set(p[0], p[1])
		}
		if r.TLS != nil && h.hsts != "" {
			hdr.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
