package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/buildgrid/siteops/backend/internal/config"
	"github.com/buildgrid/siteops/backend/internal/errorreporting"
	"github.com/buildgrid/siteops/backend/internal/logger"
	"github.com/buildgrid/siteops/backend/internal/sanitize"
	"github.com/buildgrid/siteops/backend/internal/server"
	"github.com/buildgrid/siteops/backend/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	slog := logger.Get()

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		slog.Warn("Sentry init failed, continuing without error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init("siteops-backend")
	if err != nil {
		slog.Warn("Tracing init failed, continuing without traces", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	srv, err := server.New(cfg)
	if err != nil {
		slog.Error("Server setup failed", "error", err, "database_url", sanitize.MaskDSN(cfg.DatabaseURL))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		slog.Error("Server start failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			errorreporting.CaptureError(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Component shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}
