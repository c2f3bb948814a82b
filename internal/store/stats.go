package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ScreenCount is one entry of the per-screen interaction breakdown.
type ScreenCount struct {
	ScreenID string `json:"screen_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// SplashStats holds aggregated interaction statistics. DisplayedCount is
// every confirmed interaction; ClickedCount and MissedCount only consider
// interactions older than the grace cutoff, so in-flight events are never
// classified as missed while confirmed ones always show on the dashboard.
type SplashStats struct {
	TotalInteractions int
	Screens           []ScreenCount
	AvgLagMs          *float64
	ClickedCount      int
	DisplayedCount    int
	MissedCount       int
}

// StatsFilter narrows the aggregation.
type StatsFilter struct {
	ScreenID    *string
	GraceCutoff time.Time // interactions clicked after this are ignored for missed classification
	TopScreens  int
}

// GetSplashStats computes interaction aggregates from the durable record.
// The several aggregates are independent reads; cross-read consistency is not
// required.
func (s *Store) GetSplashStats(ctx context.Context, f StatsFilter) (*SplashStats, error) {
	stats := &SplashStats{Screens: []ScreenCount{}}
	cutoff := f.GraceCutoff.UTC().Format(TimeFormat)

	countsQuery := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN clicked_at <= ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN displayed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN clicked_at <= ? AND displayed_at IS NULL THEN 1 ELSE 0 END), 0),
		AVG(lag_ms)
	FROM interactions
	`
	args := []any{cutoff, cutoff}
	if f.ScreenID != nil {
		countsQuery += " WHERE screen_id = ?"
		args = append(args, *f.ScreenID)
	}

	var avgLag sql.NullFloat64
	err := s.db.QueryRowContext(ctx, countsQuery, args...).Scan(
		&stats.TotalInteractions, &stats.ClickedCount, &stats.DisplayedCount,
		&stats.MissedCount, &avgLag,
	)
	if err != nil {
		return nil, fmt.Errorf("splash counts: %w", err)
	}
	if avgLag.Valid {
		stats.AvgLagMs = &avgLag.Float64
	}

	topN := f.TopScreens
	if topN <= 0 {
		topN = 5
	}

	screensQuery := `
	SELECT i.screen_id, COALESCE(s.name, 'Unknown'), COUNT(*) AS n
	FROM interactions i
	LEFT JOIN screens s ON s.id = i.screen_id
	`
	screenArgs := []any{}
	if f.ScreenID != nil {
		screensQuery += " WHERE i.screen_id = ?"
		screenArgs = append(screenArgs, *f.ScreenID)
	}
	screensQuery += `
	GROUP BY i.screen_id
	ORDER BY n DESC
	LIMIT ?
	`
	screenArgs = append(screenArgs, topN)

	rows, err := s.db.QueryContext(ctx, screensQuery, screenArgs...)
	if err != nil {
		return nil, fmt.Errorf("splash screen breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc ScreenCount
		if err := rows.Scan(&sc.ScreenID, &sc.Name, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan screen count: %w", err)
		}
		stats.Screens = append(stats.Screens, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
