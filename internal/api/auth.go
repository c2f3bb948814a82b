package api

import (
	"net/http"
	"time"

	"github.com/splashlab/splashboard/internal/api/sseauth"
)

// tokenResponse is the response for POST /auth/token.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// handleAuthToken handles POST /auth/token requests.
// Requires Basic Auth. Issues a short-lived admin stream token.
func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if len(s.streamSecret) == 0 {
		writeError(w, http.StatusServiceUnavailable, "stream tokens not configured", nil)
		return
	}

	token, err := sseauth.GenerateToken(s.streamSecret, sseauth.ScopeAdminStream, 0, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresIn: int(sseauth.DefaultTTL.Seconds()),
	})
}
