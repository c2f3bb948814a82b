// Package api provides HTTP API server functionality.
package api

import (
	"log/slog"
	"sync"

	"github.com/splashlab/splashboard/internal/event"
)

const (
	defaultSubscriberBufferSize = 16
	defaultBroadcastBufferSize  = 64
)

// Subscriber represents one connected display surface or admin observer.
// A subscriber belongs to exactly one topic for its lifetime.
type Subscriber struct {
	topic    string
	splashes chan *event.Splash
	done     chan struct{}
}

// Topic returns the topic this subscriber joined.
func (s *Subscriber) Topic() string {
	return s.topic
}

// Splashes returns the channel for receiving broadcast messages.
func (s *Subscriber) Splashes() <-chan *event.Splash {
	return s.splashes
}

// Done returns a channel that is closed when the subscriber is unsubscribed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// broadcastMsg pairs a splash with its destination topic.
type broadcastMsg struct {
	topic  string
	splash *event.Splash
}

// Hub groups subscribers into topics (one per screen, one shared admin
// topic) and delivers each published message to every current subscriber of
// its topic. Delivery is best-effort and at-most-once: there is no backlog,
// and a subscriber that connects after a publish never sees that message.
// Uses 1 goroutine + channel management pattern for thread safety; the
// single loop also preserves publish order per topic.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan broadcastMsg
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	subscriberBufferSize int
	logger               *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubSubscriberBufferSize sets the buffer size for subscriber channels.
func WithHubSubscriberBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.subscriberBufferSize = size
		}
	}
}

// WithHubLogger sets the logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new broadcast hub.
// Call Run() to start the hub's event loop.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		register:             make(chan *Subscriber),
		unregister:           make(chan *Subscriber),
		broadcast:            make(chan broadcastMsg, defaultBroadcastBufferSize),
		stop:                 make(chan struct{}),
		stopped:              make(chan struct{}),
		subscriberBufferSize: defaultSubscriberBufferSize,
		logger:               slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop.
// This method blocks until Stop() is called.
// Should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	topics := make(map[string]map[*Subscriber]struct{})
	defer close(h.stopped)

	for {
		select {
		case sub := <-h.register:
			subs, ok := topics[sub.topic]
			if !ok {
				subs = make(map[*Subscriber]struct{})
				topics[sub.topic] = subs
			}
			subs[sub] = struct{}{}
			h.logger.Debug("subscriber registered", "topic", sub.topic, "count", len(subs))

		case sub := <-h.unregister:
			if subs, ok := topics[sub.topic]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.done)
					close(sub.splashes)
					if len(subs) == 0 {
						delete(topics, sub.topic)
					}
					h.logger.Debug("subscriber unregistered", "topic", sub.topic, "count", len(subs))
				}
			}

		case msg := <-h.broadcast:
			for sub := range topics[msg.topic] {
				select {
				case sub.splashes <- msg.splash:
					// Message sent successfully
				default:
					// Channel full, drop for this subscriber: latency over
					// completeness.
					h.logger.Warn("subscriber channel full, splash dropped",
						"topic", msg.topic,
						"interaction_id", msg.splash.InteractionID,
					)
				}
			}

		case <-h.stop:
			// Close all subscriber channels
			for _, subs := range topics {
				for sub := range subs {
					close(sub.done)
					close(sub.splashes)
				}
			}
			return
		}
	}
}

// Stop stops the hub's event loop.
// Blocks until the hub has fully stopped.
// Safe to call multiple times (idempotent).
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.stopped
}

// Subscribe joins a topic and returns the new subscriber.
// The caller must call Unsubscribe when done.
func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{
		topic:    topic,
		splashes: make(chan *event.Splash, h.subscriberBufferSize),
		done:     make(chan struct{}),
	}

	select {
	case h.register <- sub:
		return sub
	case <-h.stopped:
		// Hub is stopped, return a closed subscriber
		close(sub.done)
		close(sub.splashes)
		return sub
	}
}

// Unsubscribe removes a subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	select {
	case h.unregister <- sub:
	case <-h.stopped:
		// Hub is stopped, nothing to do
	}
}

// Publish sends a splash to all current subscribers of the topic.
// Non-blocking: if the broadcast channel is full, the message is dropped
// (it remains durably recorded by the ingestion path).
func (h *Hub) Publish(topic string, splash *event.Splash) {
	if splash == nil {
		return
	}

	select {
	case h.broadcast <- broadcastMsg{topic: topic, splash: splash}:
		// Queued for broadcast
	case <-h.stopped:
		// Hub is stopped
	default:
		// Broadcast channel full
		h.logger.Warn("broadcast channel full, splash dropped",
			"topic", topic,
			"interaction_id", splash.InteractionID,
		)
	}
}
