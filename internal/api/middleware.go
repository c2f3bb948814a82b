package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/splashlab/splashboard/internal/api/sseauth"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// corsMiddleware returns a middleware that handles CORS headers.
// Throw pages and billboards are served from arbitrary hosts, so a "*"
// entry in the allowlist permits any origin. Credentials are never
// combined with the wildcard.
func corsMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := wildcard && origin != ""
			if !allowed {
				for _, o := range cfg.AllowedOrigins {
					if o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				if allowed {
					w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
					w.WriteHeader(http.StatusNoContent)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// constantTimeEqualString compares two strings in constant time.
// Uses SHA-256 hashing so comparison time is independent of input lengths.
func constantTimeEqualString(a, b string) bool {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ah[:], bh[:]) == 1
}

// basicAuthMiddleware returns a middleware that checks HTTP Basic Auth
// credentials using constant-time comparison. When a failure limiter is
// given, wrong credentials count toward that IP's lockout and a success
// clears its record; a missing Authorization header is the normal browser
// challenge handshake and is not counted.
func basicAuthMiddleware(username, password string, failures *AuthFailureLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="Splashboard"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			usernameMatch := constantTimeEqualString(u, username)
			passwordMatch := constantTimeEqualString(p, password)

			if !usernameMatch || !passwordMatch {
				if failures != nil {
					failures.RecordFailure(extractIP(r))
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="Splashboard"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if failures != nil {
				failures.RecordSuccess(extractIP(r))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// streamTokenMiddleware guards the admin stream. It accepts either Basic
// Auth or a short-lived stream token passed via ?token=xxx, because
// EventSource cannot send Authorization headers.
func streamTokenMiddleware(username, password string, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, p, ok := r.BasicAuth(); ok {
				if constantTimeEqualString(u, username) && constantTimeEqualString(p, password) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := r.URL.Query().Get("token")
			if token != "" && len(secret) > 0 {
				_, err := sseauth.ValidateToken(token, secret, sseauth.ScopeAdminStream, time.Now())
				if err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="Splashboard"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}
