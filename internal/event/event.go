// Package event provides the shared interaction model for Splashboard.
// This package is used by api, ingest, app, and store packages.
package event

import (
	"regexp"
	"time"
)

// Topic names for the broadcast hub.
const (
	// TopicAdmin is the shared topic all administrative observers join.
	TopicAdmin = "admin"

	// screenTopicPrefix prefixes per-screen topics.
	screenTopicPrefix = "screen:"
)

// ScreenTopic returns the broadcast topic for a display surface.
func ScreenTopic(screenID string) string {
	return screenTopicPrefix + screenID
}

// colorPattern matches a 24-bit RGB hex color like "#ff4d00".
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidColor reports whether s is a well-formed color value.
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// Interaction represents a single color splash thrown at a screen.
// This is the domain model shared across packages, independent of storage
// implementation.
type Interaction struct {
	ID          string     `json:"id"`
	ScreenID    string     `json:"screen_id"`
	Color       string     `json:"color"`
	UserName    *string    `json:"user_name,omitempty"`
	DeviceHash  string     `json:"-"`
	IsBonus     bool       `json:"is_bonus,omitempty"`
	ClickedAt   time.Time  `json:"clicked_at"`
	DisplayedAt *time.Time `json:"displayed_at,omitempty"`
	LagMs       *int64     `json:"lag_ms,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Splash is the broadcast payload sent to screen and admin subscribers.
// It is an ephemeral projection of an Interaction and is never persisted.
type Splash struct {
	InteractionID string    `json:"interactionId"`
	Color         string    `json:"color"`
	UserName      string    `json:"userName"`
	ScreenName    string    `json:"screenName"`
	Timestamp     time.Time `json:"timestamp"`
}

// Screen is a display surface as resolved from the screen registry.
type Screen struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Live     bool   `json:"live"`
}

// Campaign is an advertising campaign funding rewards on a screen.
// Only the fields the reward payload needs are carried here.
type Campaign struct {
	ID        string    `json:"id"`
	ScreenID  string    `json:"screen_id"`
	BrandName string    `json:"brand_name"`
	Coupon    *string   `json:"coupon,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}

// StringPtr returns a pointer to the given string.
// Useful for setting optional fields.
func StringPtr(s string) *string {
	return &s
}
