package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/splashlab/splashboard/internal/api/sseauth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	handler := corsMiddleware(CORSConfig{AllowedOrigins: []string{"*"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://billboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCORSMiddleware_Allowlist(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}}
	handler := corsMiddleware(cfg)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	// Unknown origin gets no CORS headers
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Allow-Origin for unknown origin: %q", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware(CORSConfig{AllowedOrigins: []string{"*"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://billboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for allowed preflight, got %d", rec.Code)
	}

	// Preflight from a disallowed origin is refused
	handler = corsMiddleware(CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}})(okHandler())
	req = httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for disallowed preflight, got %d", rec.Code)
	}
}

func TestBasicAuthMiddleware(t *testing.T) {
	handler := basicAuthMiddleware("admin", "secret", nil)(okHandler())

	// Missing credentials
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}

	// Wrong password
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong password, got %d", rec.Code)
	}

	// Valid credentials
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid credentials, got %d", rec.Code)
	}
}

func TestBasicAuthMiddleware_LockoutAfterFailures(t *testing.T) {
	afl := NewAuthFailureLimiter(AuthFailureLimiterConfig{
		MaxFailures:   3,
		Window:        time.Minute,
		LockoutPeriod: time.Minute,
	})
	// Same composition wrapAuth builds: lockout check outside, credential
	// check (recording failures) inside.
	handler := afl.Middleware(basicAuthMiddleware("admin", "secret", afl)(okHandler()))

	badRequest := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = ip
		req.SetBasicAuth("admin", "wrong")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := badRequest("10.1.2.3:4242"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}

	// Locked out now, even with correct credentials
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "10.1.2.3:4242"
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 during lockout, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header during lockout")
	}

	// Another IP is unaffected
	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "10.9.9.9:4242"
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from a clean IP, got %d", rec.Code)
	}
}

func TestBasicAuthMiddleware_SuccessClearsFailures(t *testing.T) {
	afl := NewAuthFailureLimiter(AuthFailureLimiterConfig{
		MaxFailures:   3,
		Window:        time.Minute,
		LockoutPeriod: time.Minute,
	})
	handler := afl.Middleware(basicAuthMiddleware("admin", "secret", afl)(okHandler()))

	do := func(password string) int {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = "10.1.2.3:4242"
		req.SetBasicAuth("admin", password)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	do("wrong")
	do("wrong")
	if code := do("secret"); code != http.StatusOK {
		t.Fatalf("expected 200 with valid credentials, got %d", code)
	}

	// The success wiped the slate: two more failures do not lock
	do("wrong")
	do("wrong")
	if code := do("secret"); code != http.StatusOK {
		t.Errorf("expected 200 after cleared failures, got %d", code)
	}
}

func TestStreamTokenMiddleware(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	handler := streamTokenMiddleware("admin", "secret", secret)(okHandler())

	// Basic Auth works
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with basic auth, got %d", rec.Code)
	}

	// Valid token works
	token, err := sseauth.GenerateToken(secret, sseauth.ScopeAdminStream, 0, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}

	// Expired token is rejected
	expired, err := sseauth.GenerateToken(secret, sseauth.ScopeAdminStream, 0, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/stream?token="+expired, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with expired token, got %d", rec.Code)
	}

	// Nothing at all is rejected
	req = httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without auth, got %d", rec.Code)
	}
}

func TestConstantTimeEqualString(t *testing.T) {
	if !constantTimeEqualString("secret", "secret") {
		t.Error("equal strings should match")
	}
	if constantTimeEqualString("secret", "Secret") {
		t.Error("different strings should not match")
	}
	if constantTimeEqualString("short", "much-longer-string") {
		t.Error("different length strings should not match")
	}
}
