package api

import (
	"net/http"
)

// handleStats handles GET /stats requests, optionally filtered with
// ?screen=ID.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var screenID *string
	if v := r.URL.Query().Get("screen"); v != "" {
		screenID = &v
	}

	result, err := s.stats.Stats(r.Context(), screenID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
