//go:build integration

// Package integration provides end-to-end tests for the Splashboard API.
package integration

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/splashlab/splashboard/internal/api"
	"github.com/splashlab/splashboard/internal/app"
	"github.com/splashlab/splashboard/internal/config"
	"github.com/splashlab/splashboard/internal/event"
	"github.com/splashlab/splashboard/internal/ingest"
	"github.com/splashlab/splashboard/internal/ratelimit"
	"github.com/splashlab/splashboard/internal/store"
)

// TestApp holds all dependencies for integration tests.
type TestApp struct {
	Server *httptest.Server
	Store  *store.Store
	Hub    *api.Hub

	cleanup func()
}

type testAppConfig struct {
	authEnabled bool
	username    string
	password    string
	secret      []byte
	cooldown    time.Duration
}

// TestAppOption configures the test application.
type TestAppOption func(*testAppConfig)

// WithAuth enables Basic Auth on the operator endpoints.
func WithAuth() TestAppOption {
	return func(c *testAppConfig) { c.authEnabled = true }
}

// WithCooldown overrides the device cooldown window.
func WithCooldown(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.cooldown = d }
}

// NewTestApp wires up the full stack against a temporary database.
// Call Close() when done to release resources.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	cfg := &testAppConfig{
		authEnabled: false,
		username:    "admin",
		password:    "password",
		secret:      []byte("test-secret-key-32-bytes-long!!"),
		cooldown:    config.Default().Cooldown,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	limiter := ratelimit.NewMemoryLimiter()

	hub := api.NewHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	writer := ingest.NewWriter(st, limiter, cfg.cooldown, 0, nil)
	go writer.Run(ctx)

	ingestSvc := ingest.New(st, hub, limiter, writer, ingest.WithCooldown(cfg.cooldown))
	confirmSvc := app.NewConfirmService(st)
	statsSvc := app.NewStatsService(st, app.WithMissedGrace(time.Millisecond))

	serverOpts := []api.ServerOption{
		api.WithIngestService(ingestSvc),
		api.WithConfirmUsecase(confirmSvc),
		api.WithStatsUsecase(statsSvc),
		api.WithHub(hub),
		api.WithStreamSecret(cfg.secret),
	}
	if cfg.authEnabled {
		serverOpts = append(serverOpts, api.WithBasicAuth(cfg.username, cfg.password))
	}

	server := api.NewServer("127.0.0.1:0", app.HealthService{Version: "test"}, serverOpts...)
	ts := httptest.NewServer(server.Handler())

	cleanup := func() {
		ts.Close()
		cancel()
		writer.Wait()
		hub.Stop()
		limiter.Stop()
		st.Close()
	}

	return &TestApp{
		Server:  ts,
		Store:   st,
		Hub:     hub,
		cleanup: cleanup,
	}
}

// Close releases all resources.
func (a *TestApp) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

// URL returns the base URL of the test server.
func (a *TestApp) URL() string {
	return a.Server.URL
}

// SeedScreen registers a live screen, optionally with an active campaign.
func (a *TestApp) SeedScreen(t *testing.T, screenID, name string, campaign *event.Campaign) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()

	screen := &event.Screen{ID: screenID, Name: name, Live: true}
	if err := a.Store.CreateScreen(ctx, screen, now); err != nil {
		t.Fatalf("failed to create screen: %v", err)
	}
	if campaign != nil {
		if err := a.Store.CreateCampaign(ctx, campaign); err != nil {
			t.Fatalf("failed to create campaign: %v", err)
		}
	}
}

// WaitForCount polls until the store holds want interactions, or fails
// after two seconds. Persistence is asynchronous.
func (a *TestApp) WaitForCount(t *testing.T, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := a.Store.CountInteractions(context.Background())
		if err != nil {
			t.Fatalf("count interactions: %v", err)
		}
		if n >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d interactions", want)
}
