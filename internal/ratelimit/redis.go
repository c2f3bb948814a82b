package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// cooldownKeyPrefix namespaces cooldown entries in the shared store.
	cooldownKeyPrefix = "splash:cooldown:"

	// pingTimeout bounds the availability probe so a dead store cannot
	// stall admission.
	pingTimeout = 500 * time.Millisecond
)

// RedisLimiter is a Limiter backed by a Redis-compatible key-value store.
// Entries expire server-side via TTL.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter connects to the key-value store at addr.
// Connectivity is not verified here; Available probes it per request.
func NewRedisLimiter(addr string) *RedisLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 1,
	})
	return &RedisLimiter{client: client}
}

// Available reports whether the store answers a ping within pingTimeout.
func (r *RedisLimiter) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}

// Admit reserves the cooldown key with SET NX EX. The store performs the
// check-and-set atomically, so concurrent requests from one device resolve
// to a single admission.
func (r *RedisLimiter) Admit(ctx context.Context, deviceHash string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, cooldownKey(deviceHash), time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown admit: %w", err)
	}
	return ok, nil
}

// Record sets the cooldown entry unconditionally, refreshing the ttl
// reserved at admission.
func (r *RedisLimiter) Record(ctx context.Context, deviceHash string, ttl time.Duration) error {
	if err := r.client.Set(ctx, cooldownKey(deviceHash), time.Now().UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("cooldown record: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func cooldownKey(deviceHash string) string {
	return cooldownKeyPrefix + deviceHash
}
