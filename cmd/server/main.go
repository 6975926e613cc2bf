package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rusel95/whitenoise/internal/audio"
	"github.com/rusel95/whitenoise/internal/catalog"
	"github.com/rusel95/whitenoise/internal/config"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/logger"
	"github.com/rusel95/whitenoise/internal/player"
	"github.com/rusel95/whitenoise/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	logger.Log.Info().Msg("Starting whitenoise ambient sound player")

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to get underlying database handle")
	}
	if err := db.RunMigrations(sqlDB, "file://migrations"); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	device, err := audio.NewDevice(cfg.Audio.SampleRate, cfg.Audio.ChannelCount)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open audio device")
	}

	cat := catalog.New(cfg.Library.Path, cfg.Library.Manifest)
	repos := db.NewRepositories(database)
	engine := player.NewEngine(cfg, cat, device, repos)

	srv := server.New(cfg, database, engine)

	// Run the server in a goroutine so shutdown signals can be handled
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		logger.Log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
