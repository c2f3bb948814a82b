package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/splashlab/splashboard/internal/event"
)

// ResolveScreen confirms that a screen exists and is live, and returns it
// together with its currently active campaign, if any. This is the only read
// the core needs from the screen registry; full screen CRUD belongs to the
// external management layer.
func (s *Store) ResolveScreen(ctx context.Context, screenID string, now time.Time) (*event.Screen, *event.Campaign, error) {
	const screenQuery = `SELECT id, name, location, live FROM screens WHERE id = ?`

	var (
		screen   event.Screen
		location sql.NullString
	)
	err := s.db.QueryRowContext(ctx, screenQuery, screenID).Scan(
		&screen.ID, &screen.Name, &location, &screen.Live,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("screen %s: %w", screenID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve screen: %w", err)
	}
	if location.Valid {
		screen.Location = location.String
	}
	if !screen.Live {
		return nil, nil, fmt.Errorf("screen %s is not live: %w", screenID, ErrNotFound)
	}

	const campaignQuery = `
	SELECT id, screen_id, brand_name, coupon, starts_at, ends_at
	FROM campaigns
	WHERE screen_id = ? AND starts_at <= ? AND ends_at >= ?
	ORDER BY starts_at DESC
	LIMIT 1
	`

	nowStr := now.UTC().Format(TimeFormat)
	var (
		campaign event.Campaign
		coupon   sql.NullString
		startsAt string
		endsAt   string
	)
	err = s.db.QueryRowContext(ctx, campaignQuery, screenID, nowStr, nowStr).Scan(
		&campaign.ID, &campaign.ScreenID, &campaign.BrandName, &coupon, &startsAt, &endsAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &screen, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve campaign: %w", err)
	}

	if campaign.StartsAt, err = time.Parse(TimeFormat, startsAt); err != nil {
		return nil, nil, fmt.Errorf("parse starts_at %q: %w", startsAt, err)
	}
	if campaign.EndsAt, err = time.Parse(TimeFormat, endsAt); err != nil {
		return nil, nil, fmt.Errorf("parse ends_at %q: %w", endsAt, err)
	}
	if coupon.Valid {
		campaign.Coupon = &coupon.String
	}
	return &screen, &campaign, nil
}

// CreateScreen inserts a screen into the registry (seeding and tests only).
func (s *Store) CreateScreen(ctx context.Context, screen *event.Screen, createdAt time.Time) error {
	const query = `INSERT INTO screens (id, name, location, live, created_at) VALUES (?, ?, ?, ?, ?)`

	location := sql.NullString{String: screen.Location, Valid: screen.Location != ""}
	_, err := s.db.ExecContext(ctx, query,
		screen.ID, screen.Name, location, screen.Live, createdAt.UTC().Format(TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	return nil
}

// CreateCampaign inserts a campaign into the registry (seeding and tests only).
func (s *Store) CreateCampaign(ctx context.Context, c *event.Campaign) error {
	const query = `INSERT INTO campaigns (id, screen_id, brand_name, coupon, starts_at, ends_at) VALUES (?, ?, ?, ?, ?, ?)`

	coupon := sql.NullString{}
	if c.Coupon != nil {
		coupon = sql.NullString{String: *c.Coupon, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.ScreenID, c.BrandName, coupon,
		c.StartsAt.UTC().Format(TimeFormat), c.EndsAt.UTC().Format(TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}
