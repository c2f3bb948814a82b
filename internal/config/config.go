// Package config provides environment-driven configuration for Splashboard.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names. Everything is externally configured; there is
// no config file.
const (
	EnvPort           = "SPLASH_PORT"
	EnvDBPath         = "SPLASH_DB_PATH"
	EnvRedisAddr      = "SPLASH_REDIS_ADDR"
	EnvCooldown       = "SPLASH_COOLDOWN"
	EnvMissedGrace    = "SPLASH_MISSED_GRACE"
	EnvTopScreens     = "SPLASH_TOP_SCREENS"
	EnvQueueSize      = "SPLASH_QUEUE_SIZE"
	EnvAdminUser      = "SPLASH_ADMIN_USER"
	EnvAdminPassword  = "SPLASH_ADMIN_PASSWORD"
	EnvAllowedOrigins = "SPLASH_ALLOWED_ORIGINS"
	EnvStreamSecret   = "SPLASH_STREAM_SECRET"
	EnvSeedDemo       = "SPLASH_SEED_DEMO"
)

// Config holds application configuration.
type Config struct {
	Port           int
	DBPath         string
	RedisAddr      string // empty means the in-process cooldown fallback
	Cooldown       time.Duration
	MissedGrace    time.Duration
	TopScreens     int
	QueueSize      int
	AdminUser      string
	AdminPassword  string
	AllowedOrigins []string // "*" allows any origin
	StreamSecret   string   // empty means a per-process random secret
	SeedDemo       bool
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Port:           8080,
		DBPath:         "splashboard.sqlite",
		RedisAddr:      "",
		Cooldown:       10 * time.Minute,
		MissedGrace:    30 * time.Second,
		TopScreens:     5,
		QueueSize:      1024,
		AllowedOrigins: []string{"*"},
	}
}

// Load reads configuration from the environment on top of defaults.
func Load() Config {
	cfg := Default()
	cfg.Port = getInt(EnvPort, cfg.Port)
	cfg.DBPath = getString(EnvDBPath, cfg.DBPath)
	cfg.RedisAddr = getString(EnvRedisAddr, cfg.RedisAddr)
	cfg.Cooldown = getDuration(EnvCooldown, cfg.Cooldown)
	cfg.MissedGrace = getDuration(EnvMissedGrace, cfg.MissedGrace)
	cfg.TopScreens = getInt(EnvTopScreens, cfg.TopScreens)
	cfg.QueueSize = getInt(EnvQueueSize, cfg.QueueSize)
	cfg.AdminUser = getString(EnvAdminUser, "")
	cfg.AdminPassword = getString(EnvAdminPassword, "")
	cfg.AllowedOrigins = getList(EnvAllowedOrigins, cfg.AllowedOrigins)
	cfg.StreamSecret = getString(EnvStreamSecret, "")
	cfg.SeedDemo = getBool(EnvSeedDemo, false)
	return cfg
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
