package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/compliance-copilot/internal/api/copilot"
	"github.com/tjfontaine/compliance-copilot/internal/config"
	"github.com/tjfontaine/compliance-copilot/internal/journal"
	"github.com/tjfontaine/compliance-copilot/internal/server"
	"github.com/tjfontaine/compliance-copilot/internal/session"
	"github.com/tjfontaine/compliance-copilot/internal/telemetry"
	"github.com/tjfontaine/compliance-copilot/internal/web"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	client := copilot.NewClient(
		copilot.WithBaseURL(cfg.API.BaseURL),
		copilot.WithHTTPClient(&http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)

	registry := session.NewRegistry(session.Deps{
		Uploader:        client,
		Analyzer:        client,
		Journal:         store,
		Logger:          logger,
		AnalysisTimeout: cfg.Analysis.Timeout,
	}, session.WithIdleTimeout(cfg.Session.IdleTimeout))

	handler := web.New(web.Options{
		Sessions:           registry,
		Searcher:           client,
		Health:             client,
		Journal:            store,
		Logger:             logger,
		MaxUploadBytes:     cfg.Upload.MaxBytes(),
		SearchDefaultLimit: cfg.Search.DefaultLimit,
		SearchMaxLimit:     cfg.Search.MaxLimit,
		CookieSecure:       cfg.Session.CookieSecure,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
	})

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		RouteTimeouts: []server.RouteTimeout{
			{Method: http.MethodPost, Path: web.UploadPath, Timeout: cfg.Upload.Timeout},
		},
		ServiceName: cfg.Telemetry.ServiceName,
	})
	srv.Mount("/", handler.Routes())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.RunSweeper(ctx, cfg.Session.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("compliance copilot started",
		slog.Int("port", cfg.Server.Port),
		slog.String("api_base_url", cfg.API.BaseURL),
		slog.String("journal", cfg.Journal.Driver),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
