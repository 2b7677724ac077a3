// Package main is the entry point for the sqlgate server binary: it loads
// configuration, opens the metastore, wires the application, and serves
// the HTTP API until SIGINT/SIGTERM.
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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"sqlgate/internal/api"
	"sqlgate/internal/app"
	"sqlgate/internal/config"
	"sqlgate/internal/db"
	"sqlgate/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warn := range cfg.Warnings {
		logger.Warn(warn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bundle, err := config.LoadServersFile(cfg.ServersFile)
	if err != nil {
		return fmt.Errorf("servers file: %w", err)
	}
	logger.Info("server registry loaded",
		"file", cfg.ServersFile, "servers", len(bundle.Registry.List()))

	store, err := db.Open(cfg.MetaDBPath, 4)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer store.Close() //nolint:errcheck

	if err := db.RunMigrations(store.Write); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	a, err := app.New(app.Deps{Cfg: cfg, Store: store, Bundle: bundle, Logger: logger})
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer a.Close() //nolint:errcheck

	validator, err := middleware.NewHS256Validator(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token validator: %w", err)
	}

	handler := api.NewHandler(
		a.Services.Gateway,
		a.Services.Approval,
		a.Services.Whitelist,
		a.Services.Audit,
		a.Registry,
		logger,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	floodGate := middleware.NewFloodGate(middleware.FloodGateConfig{
		RequestsPerSecond: cfg.HTTPRateRPS,
		Burst:             cfg.HTTPRateBurst,
	})
	defer floodGate.Stop()
	r.Use(floodGate.Middleware)

	// Unauthenticated operational endpoints.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Write.PingContext(r.Context()); err != nil {
			http.Error(w, "metastore unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(validator))
		r.Mount("/", handler.Routes())
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
