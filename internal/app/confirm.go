package app

import (
	"context"
	"log/slog"
	"time"
)

// ConfirmUsecase defines the display-confirmation use case.
type ConfirmUsecase interface {
	ConfirmDisplayed(ctx context.Context, interactionID string) (ConfirmResult, error)
}

// ConfirmResult reports the outcome of a display confirmation.
type ConfirmResult struct {
	InteractionID string    `json:"interactionId"`
	DisplayedAt   time.Time `json:"displayedAt"`
	LagMs         int64     `json:"lagMs"`
}

// ConfirmStore defines the store operations ConfirmService needs.
type ConfirmStore interface {
	ConfirmDisplayed(ctx context.Context, id string, now time.Time) (displayedAt time.Time, lagMs int64, confirmed bool, err error)
}

// ConfirmService closes the delivery loop: the display surface reports that
// an interaction rendered, and the click-to-display lag is derived from it.
type ConfirmService struct {
	store  ConfirmStore
	logger *slog.Logger
	now    func() time.Time
}

// NewConfirmService creates a ConfirmService.
func NewConfirmService(store ConfirmStore) *ConfirmService {
	return &ConfirmService{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// ConfirmDisplayed sets the display timestamp for the interaction, exactly
// once. Repeat confirmations are no-ops returning the originally stored
// values, so a retrying billboard cannot skew the lag metric. Unknown ids
// surface store.ErrNotFound.
func (s *ConfirmService) ConfirmDisplayed(ctx context.Context, interactionID string) (ConfirmResult, error) {
	displayedAt, lagMs, confirmed, err := s.store.ConfirmDisplayed(ctx, interactionID, s.now())
	if err != nil {
		return ConfirmResult{}, err
	}
	if !confirmed {
		s.logger.Debug("duplicate display confirmation ignored", "interaction_id", interactionID)
	}

	return ConfirmResult{
		InteractionID: interactionID,
		DisplayedAt:   displayedAt,
		LagMs:         lagMs,
	}, nil
}
