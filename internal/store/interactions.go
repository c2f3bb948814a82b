package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/splashlab/splashboard/internal/event"
)

// validateInteraction checks the fields the schema requires.
func validateInteraction(in *event.Interaction) error {
	if in == nil {
		return fmt.Errorf("%w: nil", ErrInvalidInteraction)
	}
	if in.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidInteraction)
	}
	if in.ScreenID == "" {
		return fmt.Errorf("%w: missing screen_id", ErrInvalidInteraction)
	}
	if in.Color == "" {
		return fmt.Errorf("%w: missing color", ErrInvalidInteraction)
	}
	if in.DeviceHash == "" {
		return fmt.Errorf("%w: missing device_hash", ErrInvalidInteraction)
	}
	if in.ClickedAt.IsZero() || in.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamps", ErrInvalidInteraction)
	}
	return nil
}

// InsertInteraction inserts an interaction into the database.
// The caller assigns the id before broadcasting, so a later confirmation can
// address this row.
func (s *Store) InsertInteraction(ctx context.Context, in *event.Interaction) error {
	if err := validateInteraction(in); err != nil {
		return err
	}

	const query = `
	INSERT INTO interactions
	(id, screen_id, color, user_name, device_hash, is_bonus, clicked_at, displayed_at, lag_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	row := interactionToRow(in)
	_, err := s.db.ExecContext(ctx, query,
		row.ID,
		row.ScreenID,
		row.Color,
		row.UserName,
		row.DeviceHash,
		row.IsBonus,
		row.ClickedAt,
		row.DisplayedAt,
		row.LagMs,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// GetInteraction returns a single interaction by id.
// Returns ErrNotFound if no such row exists.
func (s *Store) GetInteraction(ctx context.Context, id string) (*event.Interaction, error) {
	const query = `
	SELECT id, screen_id, color, user_name, device_hash, is_bonus, clicked_at, displayed_at, lag_ms, created_at
	FROM interactions
	WHERE id = ?
	`

	var r interactionRow
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.ScreenID, &r.Color, &r.UserName, &r.DeviceHash,
		&r.IsBonus, &r.ClickedAt, &r.DisplayedAt, &r.LagMs, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	return r.toInteraction()
}

// ConfirmDisplayed sets displayed_at for the given interaction, exactly once.
// The update is conditional on displayed_at still being NULL, so a duplicate
// confirmation never overwrites the first timestamp; the stored time and lag
// are returned either way. displayed_at is clamped to clicked_at so lag never
// goes negative when the confirming clock is behind a client-supplied
// clicked_at. Returns ErrNotFound for an unknown id.
func (s *Store) ConfirmDisplayed(ctx context.Context, id string, now time.Time) (displayedAt time.Time, lagMs int64, confirmed bool, err error) {
	in, err := s.GetInteraction(ctx, id)
	if err != nil {
		return time.Time{}, 0, false, err
	}
	if in.DisplayedAt != nil {
		return *in.DisplayedAt, storedLag(in), false, nil
	}

	displayed := now.UTC()
	if displayed.Before(in.ClickedAt) {
		displayed = in.ClickedAt.UTC()
	}
	lag := displayed.Sub(in.ClickedAt).Milliseconds()

	const query = `
	UPDATE interactions
	SET displayed_at = ?, lag_ms = ?
	WHERE id = ? AND displayed_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, displayed.Format(TimeFormat), lag, id)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("confirm displayed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return displayed, lag, true, nil
	}

	// Lost the race to a concurrent confirmation; report its values.
	in, err = s.GetInteraction(ctx, id)
	if err != nil {
		return time.Time{}, 0, false, err
	}
	if in.DisplayedAt == nil {
		return time.Time{}, 0, false, fmt.Errorf("confirm displayed %s: update had no effect", id)
	}
	return *in.DisplayedAt, storedLag(in), false, nil
}

// storedLag returns the persisted lag, deriving it from the timestamps if
// the column is missing.
func storedLag(in *event.Interaction) int64 {
	if in.LagMs != nil {
		return *in.LagMs
	}
	if in.DisplayedAt != nil {
		return in.DisplayedAt.Sub(in.ClickedAt).Milliseconds()
	}
	return 0
}

// CountInteractions returns the total number of interactions (for testing).
func (s *Store) CountInteractions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return count, nil
}
