// Package main is the entry point for the teamboard server.
//
// The main package stays small: it reads configuration, builds the logger
// and hands both to internal/server, which owns every other dependency.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/teamboard/internal/config"
	"github.com/sakif/teamboard/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Environment variables, optionally seeded from a .env file.
	// SESSION_SECRET is the only required one.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid LOG_LEVEL", slog.String("value", cfg.LogLevel))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	// New opens the store, seeds countries and wires the routes.
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until Ctrl+C or SIGTERM, then closes the stores itself.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
