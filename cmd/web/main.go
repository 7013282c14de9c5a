package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/telegram-stats-bot/internal/analyze"
	"github.com/telegram-stats-bot/internal/config"
	"github.com/telegram-stats-bot/internal/storage"
	"github.com/telegram-stats-bot/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := config.ValidateWeb(cfg); err != nil {
		log.Fatal().Err(err).Msg("Web configuration incomplete")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.WebListenAddr).
		Str("model", cfg.GeminiModel).
		Msg("Starting web report API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage client
	logger.Info().Msg("Initializing Postgres client...")
	storageClient, err := storage.NewClient(cfg.DatabaseURL, cfg.DBTimeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage client")
	}

	if err := storageClient.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	logger.Info().Msg("Postgres connection successful")

	// Initialize analysis client
	analyzeClient := analyze.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger)
	defer func() {
		if err := analyzeClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close analysis client")
		}
	}()

	// Build and start the server
	server := web.NewServer(storageClient, analyzeClient, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Listen(cfg.WebListenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-serverErrChan:
		logger.Error().Err(err).Msg("Server stopped with error")
	}

	logger.Info().Msg("Shutting down web report API...")
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Web report API stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	var logger zerolog.Logger
	if environment == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
