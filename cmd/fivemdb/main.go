package main

import (
	"log/slog"
	"os"

	"github.com/fivemdb/fivemdb/internal/config"
	"github.com/fivemdb/fivemdb/internal/logger"
	"github.com/fivemdb/fivemdb/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	s, err := server.NewAPIServer(cfg)
	if err != nil {
		slog.Error("Failed to start API server", "error", err)
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		os.Exit(1)
	}
}
