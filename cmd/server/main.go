package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tapeo-pos/server/internal/auth"
	"github.com/tapeo-pos/server/internal/config"
	"github.com/tapeo-pos/server/internal/db"
	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/scan"
	"github.com/tapeo-pos/server/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "tapeo-pos").Logger()

	log.Info().Msg("Server starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if cfg.App.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Pool.Close()

	if err := db.Migrate(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	hub := notify.NewHub()
	go hub.Run(ctx)

	var scanner *scan.Service
	if cfg.Scan.OllamaURL != "" {
		scanner = scan.NewService(
			scan.NewTesseractOCR(cfg.Scan.TesseractBin, cfg.Scan.TesseractLangs),
			scan.NewOllamaClient(cfg.Scan.OllamaURL, cfg.Scan.OllamaModel),
		)
		log.Info().Str("model", cfg.Scan.OllamaModel).Msg("Scan stack enabled")
	} else {
		scanner = scan.NewService(nil, nil)
		log.Info().Msg("Scan stack disabled: OLLAMA_URL is not set")
	}

	authSvc := auth.NewService(cfg.Auth, cfg.App.Env == "production")

	router := transport.NewRouter(database.Pool, hub, scanner, authSvc)

	srv := &http.Server{
		Addr:        ":" + cfg.App.Port,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		// No write timeout: notification streams stay open until the
		// client disconnects.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	cancel()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
