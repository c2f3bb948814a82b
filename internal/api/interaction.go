package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/splashlab/splashboard/internal/ingest"
	"github.com/splashlab/splashboard/internal/store"
)

// maxBodySize limits POST bodies. Interaction payloads are tiny.
const maxBodySize = 64 << 10

// throwRequest is the body for POST /interaction. The fingerprint is the
// device hash the client computed; it never appears in any response.
type throwRequest struct {
	ScreenID    string     `json:"screen_id"`
	Color       string     `json:"color"`
	Fingerprint string     `json:"fingerprint"`
	UserName    string     `json:"userName"`
	IsBonus     bool       `json:"isBonus"`
	ClickedAt   *time.Time `json:"clickedAt"`
}

// throwResponse acknowledges an admitted interaction.
type throwResponse struct {
	Success       bool          `json:"success"`
	InteractionID string        `json:"interactionId"`
	Message       string        `json:"message"`
	Reward        ingest.Reward `json:"reward"`
}

// handleThrow handles POST /interaction.
func (s *Server) handleThrow(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req throwRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	result, err := s.ingest.Throw(r.Context(), ingest.ThrowRequest{
		ScreenID:   req.ScreenID,
		Color:      req.Color,
		DeviceHash: req.Fingerprint,
		UserName:   req.UserName,
		IsBonus:    req.IsBonus,
		ClickedAt:  req.ClickedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "screen not found", nil)
		case errors.Is(err, ingest.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "cooldown active, try again later", nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, throwResponse{
		Success:       true,
		InteractionID: result.InteractionID,
		Message:       result.Message,
		Reward:        result.Reward,
	})
}

// displayedRequest is the body for POST /interaction/displayed.
type displayedRequest struct {
	InteractionID string `json:"interactionId"`
}

// displayedResponse reports the confirmation outcome, including the lag
// derived from it.
type displayedResponse struct {
	Success       bool      `json:"success"`
	InteractionID string    `json:"interactionId"`
	DisplayedAt   time.Time `json:"displayedAt"`
	LagMs         int64     `json:"lagMs"`
}

// handleDisplayed handles POST /interaction/displayed.
func (s *Server) handleDisplayed(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req displayedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.InteractionID == "" {
		writeError(w, http.StatusBadRequest, "interactionId is required", nil)
		return
	}

	result, err := s.confirm.ConfirmDisplayed(r.Context(), req.InteractionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "interaction not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}

	writeJSON(w, http.StatusOK, displayedResponse{
		Success:       true,
		InteractionID: result.InteractionID,
		DisplayedAt:   result.DisplayedAt,
		LagMs:         result.LagMs,
	})
}
