package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splashlab/splashboard/internal/store"
)

type fakeConfirmStore struct {
	displayedAt time.Time
	lagMs       int64
	confirmed   bool
	err         error

	gotID  string
	gotNow time.Time
}

func (f *fakeConfirmStore) ConfirmDisplayed(ctx context.Context, id string, now time.Time) (time.Time, int64, bool, error) {
	f.gotID = id
	f.gotNow = now
	return f.displayedAt, f.lagMs, f.confirmed, f.err
}

func TestConfirmDisplayed_ReturnsStoredValues(t *testing.T) {
	displayed := time.Date(2026, 3, 10, 12, 0, 1, 0, time.UTC)
	fake := &fakeConfirmStore{displayedAt: displayed, lagMs: 320, confirmed: true}
	svc := NewConfirmService(fake)

	result, err := svc.ConfirmDisplayed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ConfirmDisplayed: %v", err)
	}
	if result.InteractionID != "abc" {
		t.Errorf("InteractionID = %q, want abc", result.InteractionID)
	}
	if !result.DisplayedAt.Equal(displayed) {
		t.Errorf("DisplayedAt = %v, want %v", result.DisplayedAt, displayed)
	}
	if result.LagMs != 320 {
		t.Errorf("LagMs = %d, want 320", result.LagMs)
	}
	if fake.gotID != "abc" {
		t.Errorf("store saw id %q, want abc", fake.gotID)
	}
}

func TestConfirmDisplayed_DuplicateReturnsOriginal(t *testing.T) {
	displayed := time.Date(2026, 3, 10, 12, 0, 1, 0, time.UTC)
	fake := &fakeConfirmStore{displayedAt: displayed, lagMs: 320, confirmed: false}
	svc := NewConfirmService(fake)

	result, err := svc.ConfirmDisplayed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ConfirmDisplayed: %v", err)
	}
	if result.LagMs != 320 || !result.DisplayedAt.Equal(displayed) {
		t.Errorf("duplicate confirmation changed stored values: %+v", result)
	}
}

func TestConfirmDisplayed_NotFound(t *testing.T) {
	fake := &fakeConfirmStore{err: store.ErrNotFound}
	svc := NewConfirmService(fake)

	_, err := svc.ConfirmDisplayed(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}
