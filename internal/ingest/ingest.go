// Package ingest implements the interaction ingestion pipeline: admission
// control, screen resolution, broadcast fan-out, and background persistence.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/splashlab/splashboard/internal/event"
	"github.com/splashlab/splashboard/internal/ratelimit"
)

// Sentinel errors returned to the transport layer.
var (
	// ErrInvalidRequest is returned when a required field is missing or
	// malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRateLimited is returned when the device is inside its cooldown
	// window.
	ErrRateLimited = errors.New("rate limited")
)

// DefaultCooldown is the cooldown window between two non-bonus throws from
// the same device.
const DefaultCooldown = 10 * time.Minute

// defaultRewardMessage is handed out when no campaign funds the throw.
const defaultRewardMessage = "Enjoy the colors!"

// ScreenRegistry resolves display surfaces and their active campaigns.
type ScreenRegistry interface {
	ResolveScreen(ctx context.Context, screenID string, now time.Time) (*event.Screen, *event.Campaign, error)
}

// Broadcaster fans a splash out to all current subscribers of a topic.
type Broadcaster interface {
	Publish(topic string, splash *event.Splash)
}

// ThrowRequest is an incoming interaction submission.
type ThrowRequest struct {
	ScreenID   string
	Color      string
	DeviceHash string
	UserName   string
	IsBonus    bool
	ClickedAt  *time.Time
}

// Reward is the small thank-you payload returned to the device.
type Reward struct {
	Message string  `json:"message"`
	Coupon  *string `json:"coupon"`
}

// ThrowResult acknowledges an admitted interaction.
type ThrowResult struct {
	InteractionID string
	Message       string
	Reward        Reward
}

// Service coordinates the rate limiter, screen registry, broadcast hub, and
// background writer. The broadcast is the priority: it is published before
// persistence and never waits on it.
type Service struct {
	registry ScreenRegistry
	hub      Broadcaster
	limiter  ratelimit.Limiter
	writer   *Writer

	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown overrides the device cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithLogger sets the logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates the ingestion service.
func New(registry ScreenRegistry, hub Broadcaster, limiter ratelimit.Limiter, writer *Writer, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		hub:      hub,
		limiter:  limiter,
		writer:   writer,
		cooldown: DefaultCooldown,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Throw validates and admits an interaction, publishes it to the screen and
// admin topics, and hands it to the background writer. Only validation,
// rate-limit denial, and an unknown screen surface as errors; everything
// downstream of the broadcast is best-effort.
func (s *Service) Throw(ctx context.Context, req ThrowRequest) (*ThrowResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	screen, campaign, err := s.registry.ResolveScreen(ctx, req.ScreenID, now)
	if err != nil {
		return nil, err
	}

	// Admission comes after the screen resolves: Admit reserves the
	// device's cooldown, and a request rejected for an unknown or dark
	// screen must leave no reservation behind. The rate limiter itself is
	// a best-effort dependency; an unreachable store fails open and an
	// active cooldown denies the throw.
	if !req.IsBonus {
		if !s.limiter.Available(ctx) {
			s.logger.Warn("rate limiter unavailable, admitting without cooldown check",
				"device_hash", req.DeviceHash)
		} else {
			allowed, err := s.limiter.Admit(ctx, req.DeviceHash, s.cooldown)
			if err != nil {
				s.logger.Warn("cooldown check failed, admitting without cooldown check",
					"device_hash", req.DeviceHash, "error", err)
			} else if !allowed {
				return nil, fmt.Errorf("device %s in cooldown: %w", req.DeviceHash, ErrRateLimited)
			}
		}
	}

	clickedAt := now
	if req.ClickedAt != nil {
		clickedAt = req.ClickedAt.UTC()
	}

	in := &event.Interaction{
		ID:         s.newID(),
		ScreenID:   screen.ID,
		Color:      req.Color,
		DeviceHash: req.DeviceHash,
		IsBonus:    req.IsBonus,
		ClickedAt:  clickedAt,
		CreatedAt:  now,
	}
	userName := req.UserName
	if userName == "" {
		userName = "Anonymous"
	} else {
		in.UserName = event.StringPtr(req.UserName)
	}

	// Broadcast first: display latency is the metric the whole pipeline
	// protects. The id is already assigned, so the persisted row and the
	// broadcast payload refer to the same logical event.
	splash := &event.Splash{
		InteractionID: in.ID,
		Color:         in.Color,
		UserName:      userName,
		ScreenName:    screen.Name,
		Timestamp:     now,
	}
	s.hub.Publish(event.ScreenTopic(screen.ID), splash)
	s.hub.Publish(event.TopicAdmin, splash)

	// Persistence and cooldown recording happen in the background; a full
	// queue is logged, not surfaced, because the broadcast already happened.
	if !s.writer.Enqueue(persistJob{interaction: in, recordCooldown: !req.IsBonus}) {
		s.logger.Warn("persistence queue full, interaction record dropped",
			"interaction_id", in.ID, "screen_id", screen.ID)
	}

	result := &ThrowResult{
		InteractionID: in.ID,
		Message:       "Color thrown successfully!",
		Reward:        Reward{Message: defaultRewardMessage},
	}
	if campaign != nil {
		result.Reward.Message = fmt.Sprintf("Thanks from %s!", campaign.BrandName)
		result.Reward.Coupon = campaign.Coupon
	}
	return result, nil
}

func validate(req ThrowRequest) error {
	if req.ScreenID == "" {
		return fmt.Errorf("%w: missing screen_id", ErrInvalidRequest)
	}
	if req.Color == "" {
		return fmt.Errorf("%w: missing color", ErrInvalidRequest)
	}
	if !event.ValidColor(req.Color) {
		return fmt.Errorf("%w: malformed color %q", ErrInvalidRequest, req.Color)
	}
	if req.DeviceHash == "" {
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidRequest)
	}
	return nil
}
