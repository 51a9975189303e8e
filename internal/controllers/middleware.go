package controllers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/helpify-project/pairlink/internal/cctx"
)

const cfConnectingIP = "CF-Connecting-IP"

// ClientIP stores the caller's address on the request context. With
// trustEdge set the address the CDN reports in CF-Connecting-IP wins over
// the socket address.
func ClientIP(trustEdge bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ""
			if trustEdge {
				ip = strings.TrimSpace(r.Header.Get(cfConnectingIP))
			}
			if ip == "" {
				if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
					ip = host
				} else {
					ip = r.RemoteAddr
				}
			}

			next.ServeHTTP(w, r.WithContext(cctx.WithValues(r.Context(), cctx.ClientIP, ip)))
		})
	}
}

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' https://unpkg.com https://cdn.jsdelivr.net https://challenges.cloudflare.com",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
	"font-src 'self' https://fonts.gstatic.com",
	"connect-src 'self' wss: ws: https://challenges.cloudflare.com",
	"frame-src https://challenges.cloudflare.com",
	"child-src https://challenges.cloudflare.com",
	"img-src 'self' data: https://challenges.cloudflare.com",
	"object-src 'none'",
}, "; ")

var securityHeaders = map[string]string{
	"Content-Security-Policy":           contentSecurityPolicy,
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Origin-Agent-Cluster":              "?1",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Content-Type-Options":            "nosniff",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
}

// SecurityHeaders hardens page responses. Websocket and API routes are left
// alone.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ws/") && !strings.HasPrefix(r.URL.Path, "/api/") {
			h := w.Header()
			for k, v := range securityHeaders {
				h.Set(k, v)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("failed to write response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
