// Package ratelimit enforces the per-device cooldown between splashes.
//
// The limiter is a best-effort dependency: callers check Available before
// use and fail open when the backing store is unreachable, because blocking
// the experience on a non-critical subsystem is worse than occasionally
// allowing an extra throw.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a device may submit a new interaction.
type Limiter interface {
	// Available reports whether the backing store is reachable.
	// Callers treat false as "skip admission control", not "deny".
	Available(ctx context.Context) bool

	// Admit atomically checks for a live cooldown entry for the device and,
	// if none exists, reserves one with the given ttl. Returns false when a
	// cooldown is active. The check-and-set is atomic per key, so two
	// near-simultaneous requests from the same device cannot both be
	// admitted.
	Admit(ctx context.Context, deviceHash string, ttl time.Duration) (bool, error)

	// Record sets (or extends) the cooldown entry for the device. Used by
	// the background persistence path to re-assert the ttl reserved at
	// admission.
	Record(ctx context.Context, deviceHash string, ttl time.Duration) error
}
