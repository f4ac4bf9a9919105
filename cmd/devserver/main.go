// Command devserver runs the development backend: the identity provider
// plus the campaign and analytics API the remote client variant talks to.
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

	"campaignkit/internal/backend"
	"campaignkit/internal/config"
	"campaignkit/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("devserver failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.Log.SlogLevel(), cfg.Log.SlogFormat())
	slog.SetDefault(log)

	store, cleanup, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := backend.NewServer(store, log, backend.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		AccessTTL:   cfg.Auth.AccessTTL,
		OTPTTL:      cfg.Auth.OTPTTL,
		RateLimit:   cfg.HTTP.RateLimit,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildStore selects Postgres when a URL is configured and the in-memory
// store otherwise.
func buildStore(cfg config.Config, log *slog.Logger) (backend.Store, func(), error) {
	if cfg.Psql.URL == "" {
		log.Warn("no database configured, using in-memory store")
		return backend.NewMemory(), func() {}, nil
	}

	if cfg.Psql.RunMigrations {
		log.Info("applying migrations")
		if err := backend.Migrate(cfg.Psql.URL); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := backend.NewPostgresPool(context.Background(), cfg.Psql.URL, cfg.Psql.MaxConns, cfg.Psql.MinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info("database ready")
	return backend.NewPostgres(pool), pool.Close, nil
}
