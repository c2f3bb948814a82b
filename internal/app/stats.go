package app

import (
	"context"
	"time"

	"github.com/splashlab/splashboard/internal/store"
)

// DefaultMissedGrace is how long an unconfirmed interaction stays "in
// flight" before it counts as missed.
const DefaultMissedGrace = 30 * time.Second

// StatsResult is the aggregate view served to operator dashboards.
type StatsResult struct {
	TotalInteractions int                 `json:"total_interactions"`
	Screens           []store.ScreenCount `json:"screens"`
	AvgLagMs          *float64            `json:"avg_lag_ms"`
	ClickedCount      int                 `json:"clicked_count"`
	DisplayedCount    int                 `json:"displayed_count"`
	MissedCount       int                 `json:"missed_count"`
	MissedRate        float64             `json:"missed_rate"` // percent, 0..100
}

// StatsUsecase defines the aggregation use case.
type StatsUsecase interface {
	Stats(ctx context.Context, screenID *string) (*StatsResult, error)
}

// StatsStore defines the interface for stats data access.
type StatsStore interface {
	GetSplashStats(ctx context.Context, f store.StatsFilter) (*store.SplashStats, error)
}

// StatsService implements StatsUsecase over the durable record.
type StatsService struct {
	store       StatsStore
	missedGrace time.Duration
	topScreens  int
	now         func() time.Time
}

// StatsOption configures a StatsService.
type StatsOption func(*StatsService)

// WithMissedGrace overrides the missed-classification grace window.
func WithMissedGrace(d time.Duration) StatsOption {
	return func(s *StatsService) {
		if d > 0 {
			s.missedGrace = d
		}
	}
}

// WithTopScreens sets how many screens the breakdown returns.
func WithTopScreens(n int) StatsOption {
	return func(s *StatsService) {
		if n > 0 {
			s.topScreens = n
		}
	}
}

// WithStatsClock overrides the clock (for testing).
func WithStatsClock(now func() time.Time) StatsOption {
	return func(s *StatsService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStatsService creates a StatsService.
func NewStatsService(store StatsStore, opts ...StatsOption) *StatsService {
	s := &StatsService{
		store:       store,
		missedGrace: DefaultMissedGrace,
		topScreens:  5,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats computes the dashboard aggregates, optionally filtered to a single
// screen. "Missed" is a query-time classification: only interactions older
// than the grace window count, so in-flight events never inflate the rate.
func (s *StatsService) Stats(ctx context.Context, screenID *string) (*StatsResult, error) {
	raw, err := s.store.GetSplashStats(ctx, store.StatsFilter{
		ScreenID:    screenID,
		GraceCutoff: s.now().Add(-s.missedGrace),
		TopScreens:  s.topScreens,
	})
	if err != nil {
		return nil, err
	}

	result := &StatsResult{
		TotalInteractions: raw.TotalInteractions,
		Screens:           raw.Screens,
		AvgLagMs:          raw.AvgLagMs,
		ClickedCount:      raw.ClickedCount,
		DisplayedCount:    raw.DisplayedCount,
		MissedCount:       raw.MissedCount,
	}
	// Never a division fault: a quiet system reports a zero missed rate.
	if raw.ClickedCount > 0 {
		result.MissedRate = float64(raw.MissedCount) / float64(raw.ClickedCount) * 100
	}
	return result, nil
}
