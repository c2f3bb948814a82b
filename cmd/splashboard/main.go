// Package main provides the entry point for Splashboard.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/splashlab/splashboard/internal/api"
	"github.com/splashlab/splashboard/internal/app"
	"github.com/splashlab/splashboard/internal/config"
	"github.com/splashlab/splashboard/internal/event"
	"github.com/splashlab/splashboard/internal/ingest"
	"github.com/splashlab/splashboard/internal/ratelimit"
	"github.com/splashlab/splashboard/internal/store"
	"github.com/splashlab/splashboard/internal/version"
)

func main() {
	// 1. Load configuration from the environment
	cfg := config.Load()

	// 2. Open the SQLite store
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Cancellable context for the background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SeedDemo {
		if err := seedDemo(ctx, db); err != nil {
			log.Printf("Warning: demo seeding failed: %v", err)
		} else {
			log.Println("Demo screen and campaign seeded")
		}
	}

	// 4. Cooldown limiter: Redis when configured, in-process otherwise
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisLimiter := ratelimit.NewRedisLimiter(cfg.RedisAddr)
		defer redisLimiter.Close()
		limiter = redisLimiter
		log.Printf("Cooldown store: redis at %s", cfg.RedisAddr)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		defer memLimiter.Stop()
		limiter = memLimiter
		log.Println("Cooldown store: in-process memory (single instance only)")
	}

	// 5. SSE hub and its run loop
	hub := api.NewHub()
	go hub.Run()

	// 6. Background writer and the ingestion service
	writer := ingest.NewWriter(db, limiter, cfg.Cooldown, cfg.QueueSize, nil)
	go writer.Run(ctx)

	ingestSvc := ingest.New(db, hub, limiter, writer,
		ingest.WithCooldown(cfg.Cooldown),
	)

	// 7. Application services
	health := app.HealthService{Version: version.String()}
	confirmSvc := app.NewConfirmService(db)
	statsSvc := app.NewStatsService(db,
		app.WithMissedGrace(cfg.MissedGrace),
		app.WithTopScreens(cfg.TopScreens),
	)

	// 8. Stream token secret. Without one configured, tokens are minted
	// against a per-process secret and do not survive restarts.
	streamSecret := []byte(cfg.StreamSecret)
	if len(streamSecret) == 0 {
		streamSecret = make([]byte, 32)
		if _, err := rand.Read(streamSecret); err != nil {
			log.Fatalf("Failed to generate stream secret: %v", err)
		}
	}

	// 9. HTTP server
	ipLimiter := api.NewRateLimiter(api.DefaultRateLimiterConfig())
	defer ipLimiter.Stop()

	serverOpts := []api.ServerOption{
		api.WithIngestService(ingestSvc),
		api.WithConfirmUsecase(confirmSvc),
		api.WithStatsUsecase(statsSvc),
		api.WithHub(hub),
		api.WithStreamSecret(streamSecret),
		api.WithCORS(api.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}),
		api.WithIPRateLimiter(ipLimiter),
	}

	if cfg.AdminUser != "" && cfg.AdminPassword != "" {
		serverOpts = append(serverOpts,
			api.WithBasicAuth(cfg.AdminUser, cfg.AdminPassword),
			api.WithAuthFailureLimiter(api.NewAuthFailureLimiter(api.DefaultAuthFailureLimiterConfig())),
		)
		log.Println("Basic Auth enabled for operator endpoints")
	} else {
		log.Println("WARNING: no admin credentials configured, operator endpoints are open")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := api.NewServer(addr, health, serverOpts...)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		log.Printf("Starting Splashboard v%s on %s", version.String(), addr)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
		log.Println("Shutting down...")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}

	// Stop the writer first so queued interactions flush to the store
	cancel()
	writer.Wait()

	// Stop the SSE hub (closes all subscriber channels)
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// seedDemo registers a demo screen with a campaign running for a week, so a
// fresh checkout can throw colors without any registry setup.
func seedDemo(ctx context.Context, db *store.Store) error {
	now := time.Now().UTC()

	screen := &event.Screen{
		ID:       "demo",
		Name:     "Demo Billboard",
		Location: "Dev",
		Live:     true,
	}
	if err := db.CreateScreen(ctx, screen, now); err != nil {
		return err
	}

	campaign := &event.Campaign{
		ID:        "demo-campaign",
		ScreenID:  "demo",
		BrandName: "Splashlab",
		Coupon:    event.StringPtr("DEMO10"),
		StartsAt:  now,
		EndsAt:    now.Add(7 * 24 * time.Hour),
	}
	return db.CreateCampaign(ctx, campaign)
}
