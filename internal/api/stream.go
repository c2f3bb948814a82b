package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/splashlab/splashboard/internal/event"
)

// heartbeatInterval is the interval for sending SSE heartbeat comments.
const heartbeatInterval = 20 * time.Second

// handleScreenStream handles GET /stream/screen/{id} (SSE). Public: the
// billboard page subscribes to its own screen's splashes.
func (s *Server) handleScreenStream(w http.ResponseWriter, r *http.Request) {
	screenID := r.PathValue("id")
	if screenID == "" {
		writeError(w, http.StatusBadRequest, "screen id is required", nil)
		return
	}
	s.streamTopic(w, r, event.ScreenTopic(screenID))
}

// handleAdminStream handles GET /stream/admin (SSE). The firehose across
// all screens; auth is enforced by the route middleware.
func (s *Server) handleAdminStream(w http.ResponseWriter, r *http.Request) {
	s.streamTopic(w, r, event.TopicAdmin)
}

// streamTopic pins the connection to one topic for its lifetime and
// relays splashes as SSE events. The feed is live-only: a subscriber sees
// nothing published before it connected, and reconnects never replay.
func (s *Server) streamTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sub := s.hub.Subscribe(topic)
	defer s.hub.Unsubscribe(sub)

	// Initial comment to establish the connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case sp, ok := <-sub.Splashes():
			if !ok {
				// Channel closed, subscriber removed
				return
			}
			writeSSESplash(w, sp)
			flusher.Flush()

		case <-ticker.C:
			// Heartbeat comment to keep the connection alive
			fmt.Fprintf(w, ":\n\n")
			flusher.Flush()

		case <-ctx.Done():
			// Client disconnected
			return

		case <-sub.Done():
			// Hub stopped
			return
		}
	}
}

// writeSSESplash writes a single splash in SSE format. No event id is
// emitted; there is no cursor to resume from.
func writeSSESplash(w http.ResponseWriter, sp *event.Splash) {
	data, err := json.Marshal(sp)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: splash\n")
	fmt.Fprintf(w, "data: %s\n\n", data)
}
