// Package main is the entrypoint for the tripline API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyunwoo-jung/tripline/internal/api"
	"github.com/hyunwoo-jung/tripline/internal/api/handler"
	mw "github.com/hyunwoo-jung/tripline/internal/api/middleware"
	"github.com/hyunwoo-jung/tripline/internal/api/response"
	"github.com/hyunwoo-jung/tripline/internal/authflow"
	"github.com/hyunwoo-jung/tripline/internal/config"
	"github.com/hyunwoo-jung/tripline/internal/draftstore"
	"github.com/hyunwoo-jung/tripline/internal/gateway"
	"github.com/hyunwoo-jung/tripline/internal/orchestrator"
	"github.com/hyunwoo-jung/tripline/internal/poller"
	"github.com/hyunwoo-jung/tripline/internal/store"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "backend", cfg.Backend.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create the Redis-backed draft store
	drafts, err := draftstore.NewRedisStore(cfg.Redis.URL, cfg.Drafts.TTL)
	if err != nil {
		return fmt.Errorf("create draft store: %w", err)
	}
	defer drafts.Close()

	if err := drafts.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Core backend client and payment gateway
	backend := travelapi.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err := backend.Ready(ctx); err != nil {
		// The backend may simply not be up yet; requests will retry it.
		slog.Warn("core backend not ready", "error", err)
	}

	gw, err := gateway.New(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("create payment gateway: %w", err)
	}
	slog.Info("payment gateway initialized", "provider", cfg.Gateway.Provider)

	// 6. Create store
	pgStore := store.NewPostgresStore(pool)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(drafts, 60)

	orchOpts := orchestrator.Options{
		Currency:   "KRW",
		SuccessURL: cfg.Server.BaseURL + "/payments/callback/success",
		FailURL:    cfg.Server.BaseURL + "/payments/callback/fail",
	}
	pollOpts := poller.Options{
		Interval:    cfg.Polling.Interval,
		MaxAttempts: cfg.Polling.MaxAttempts,
	}

	interrupts := authflow.NewHandler(drafts, cfg.Web.LoginURL)
	booking := handler.NewBooking(backend, gw, pgStore, drafts, interrupts, orchOpts)
	draftHandlers := handler.NewDrafts(drafts)
	callbacks := handler.NewCallback(pgStore, drafts, cfg.Web.BaseURL)
	keys := handler.NewKeys(pgStore)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, drafts),

		CreateItineraryHandler: handler.NewCreateItineraryHandler(backend),
		GetItineraryJobHandler: handler.NewGetItineraryJobHandler(backend),
		WaitItineraryHandler:   handler.NewWaitItineraryHandler(backend, pollOpts),

		SubmitBookingHandler: booking.Submit,
		PayBookingHandler:    booking.Pay,
		ResumeDraftHandler:   booking.Resume,

		SavePassengerDraft:  draftHandlers.SavePassengers,
		GetPassengerDraft:   draftHandlers.GetPassengers,
		ClearPassengerDraft: draftHandlers.ClearPassengers,
		AppendFieldHistory:  draftHandlers.AppendFieldHistory,
		GetFieldHistory:     draftHandlers.GetFieldHistory,

		PaymentSuccessCallback: callbacks.Success,
		PaymentFailCallback:    callbacks.Fail,

		CreateKeyHandler: keys.Create,
		RevokeKeyHandler: keys.Revoke,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pinger is anything whose liveness the health endpoint reports.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and draft-store connectivity.
func healthHandler(db, drafts pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database":    "ok",
			"draft_store": "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := drafts.Ping(r.Context()); err != nil {
			checks["draft_store"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["draft_store"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
