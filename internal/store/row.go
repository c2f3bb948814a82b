package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/splashlab/splashboard/internal/event"
)

// interactionRow is the internal type representing an interactions row.
type interactionRow struct {
	ID          string
	ScreenID    string
	Color       string
	UserName    sql.NullString
	DeviceHash  string
	IsBonus     bool
	ClickedAt   string
	DisplayedAt sql.NullString
	LagMs       sql.NullInt64
	CreatedAt   string
}

// interactionToRow converts a domain Interaction to a database row.
func interactionToRow(in *event.Interaction) interactionRow {
	r := interactionRow{
		ID:         in.ID,
		ScreenID:   in.ScreenID,
		Color:      in.Color,
		DeviceHash: in.DeviceHash,
		IsBonus:    in.IsBonus,
		ClickedAt:  in.ClickedAt.UTC().Format(TimeFormat),
		CreatedAt:  in.CreatedAt.UTC().Format(TimeFormat),
	}
	if in.UserName != nil {
		r.UserName = sql.NullString{String: *in.UserName, Valid: true}
	}
	if in.DisplayedAt != nil {
		r.DisplayedAt = sql.NullString{String: in.DisplayedAt.UTC().Format(TimeFormat), Valid: true}
	}
	if in.LagMs != nil {
		r.LagMs = sql.NullInt64{Int64: *in.LagMs, Valid: true}
	}
	return r
}

// toInteraction converts a database row to a domain Interaction.
func (r *interactionRow) toInteraction() (*event.Interaction, error) {
	clickedAt, err := time.Parse(TimeFormat, r.ClickedAt)
	if err != nil {
		return nil, fmt.Errorf("parse clicked_at %q: %w", r.ClickedAt, err)
	}
	createdAt, err := time.Parse(TimeFormat, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}

	in := &event.Interaction{
		ID:         r.ID,
		ScreenID:   r.ScreenID,
		Color:      r.Color,
		DeviceHash: r.DeviceHash,
		IsBonus:    r.IsBonus,
		ClickedAt:  clickedAt,
		CreatedAt:  createdAt,
	}

	if r.UserName.Valid {
		in.UserName = &r.UserName.String
	}
	if r.DisplayedAt.Valid {
		displayedAt, err := time.Parse(TimeFormat, r.DisplayedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse displayed_at %q: %w", r.DisplayedAt.String, err)
		}
		in.DisplayedAt = &displayedAt
	}
	if r.LagMs.Valid {
		lag := r.LagMs.Int64
		in.LagMs = &lag
	}

	return in, nil
}
