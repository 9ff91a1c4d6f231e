package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/blockedby/grouppulse/internal/api"
	"github.com/blockedby/grouppulse/internal/config"
	"github.com/blockedby/grouppulse/internal/logger"
	"github.com/blockedby/grouppulse/internal/telegram"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting grouppulse")

	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Open the session store
	db, err := gorm.Open(sqlite.Open(cfg.SessionDB), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SessionDB).Msg("failed to open session database")
	}

	store, err := telegram.NewStorage(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session storage")
	}

	// 5. Seed a prior session token, if one was provided
	if cfg.TGSessionStr != "" {
		if err := telegram.SeedSessionToken(ctx, store, cfg.TGSessionStr); err != nil {
			log.Warn().Err(err).Msg("invalid TG_SESSION_STRING, falling back to interactive login")
		}
	}

	// 6. Authenticate before accepting any traffic
	manager := telegram.NewManager(cfg, store)
	tgClient := telegram.NewClient(manager, cfg.TGRateLimit)

	log.Info().Msg("connecting to telegram (interactive login may be required)")
	if err := manager.Connect(ctx, telegram.NewTerminalPrompter()); err != nil {
		log.Fatal().Err(err).Msg("telegram authentication failed")
	}

	// 7. Start the HTTP server
	server := api.NewServer(
		&api.Config{
			Port:           cfg.HTTPPort,
			FetchLimit:     cfg.FetchLimit,
			RequestsPerMin: cfg.RequestsPerMin,
		},
		&api.Dependencies{
			Directory: tgClient,
			Fetcher:   tgClient,
			Session:   manager,
		},
	)

	log.Info().Int("port", cfg.HTTPPort).Msg("starting http server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 8. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
