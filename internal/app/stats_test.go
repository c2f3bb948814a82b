package app

import (
	"context"
	"testing"
	"time"

	"github.com/splashlab/splashboard/internal/store"
)

// fakeStatsStore returns canned aggregates and records the filter it saw.
type fakeStatsStore struct {
	stats  store.SplashStats
	filter store.StatsFilter
}

func (f *fakeStatsStore) GetSplashStats(ctx context.Context, filter store.StatsFilter) (*store.SplashStats, error) {
	f.filter = filter
	s := f.stats
	return &s, nil
}

func TestStats_MissedRate(t *testing.T) {
	tests := []struct {
		name     string
		clicked  int
		missed   int
		wantRate float64
	}{
		{"all displayed", 10, 0, 0},
		{"half missed", 10, 5, 50},
		{"all missed", 4, 4, 100},
		{"no clicks", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeStatsStore{stats: store.SplashStats{
				ClickedCount: tt.clicked,
				MissedCount:  tt.missed,
			}}
			svc := NewStatsService(fake)

			result, err := svc.Stats(context.Background(), nil)
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if result.MissedCount != tt.missed {
				t.Errorf("MissedCount = %d, want %d", result.MissedCount, tt.missed)
			}
			if result.MissedRate != tt.wantRate {
				t.Errorf("MissedRate = %v, want %v", result.MissedRate, tt.wantRate)
			}
			if result.MissedRate < 0 || result.MissedRate > 100 {
				t.Errorf("MissedRate = %v, outside [0,100]", result.MissedRate)
			}
		})
	}
}

func TestStats_GraceCutoffApplied(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fake := &fakeStatsStore{}
	svc := NewStatsService(fake,
		WithMissedGrace(45*time.Second),
		WithStatsClock(func() time.Time { return now }),
	)

	if _, err := svc.Stats(context.Background(), nil); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	want := now.Add(-45 * time.Second)
	if !fake.filter.GraceCutoff.Equal(want) {
		t.Errorf("GraceCutoff = %v, want %v", fake.filter.GraceCutoff, want)
	}
}

func TestStats_ScreenFilterPassedThrough(t *testing.T) {
	fake := &fakeStatsStore{}
	svc := NewStatsService(fake, WithTopScreens(3))

	screen := "s1"
	if _, err := svc.Stats(context.Background(), &screen); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if fake.filter.ScreenID == nil || *fake.filter.ScreenID != "s1" {
		t.Errorf("ScreenID filter = %v, want s1", fake.filter.ScreenID)
	}
	if fake.filter.TopScreens != 3 {
		t.Errorf("TopScreens = %d, want 3", fake.filter.TopScreens)
	}
}
