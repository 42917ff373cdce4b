// Command emulator serves a local backend compatible with the feed client.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/database"
	"feedsync/internal/emulator"
	"feedsync/internal/emulator/repository"
	"feedsync/internal/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stderr)

	db, err := database.Connect(cfg, repository.Models()...)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	srv, err := emulator.NewServer(emulator.OptionsFromConfig(cfg), db)
	if err != nil {
		log.Fatalf("Failed to create emulator: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		observability.Logger().Info("Shutting down emulator...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			observability.Logger().Error("Emulator shutdown error", slog.String("error", err.Error()))
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := srv.Listen(":" + cfg.EmulatorPort); err != nil {
		log.Fatalf("Emulator stopped: %v", err)
	}
}
