package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a screen or interaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInteraction is returned when an interaction fails validation.
	ErrInvalidInteraction = errors.New("invalid interaction")
)
