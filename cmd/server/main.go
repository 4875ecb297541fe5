package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tv-consensus-bot/internal/config"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/server"
	"tv-consensus-bot/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		os.Exit(1)
	}

	store, closeStore, err := initializeDedup(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize dedup store", err)
		os.Exit(1)
	}
	defer closeStore()

	eng := initializeEngine(ctx, cfg, store)

	srv := server.NewServer(eng,
		server.WithHost(cfg.Server.Host),
		server.WithPort(cfg.Server.Port),
		server.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeoutSec)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSec)*time.Second,
			time.Duration(cfg.Server.ShutdownSec)*time.Second,
		),
	)
	if err := srv.Start(); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start HTTP server", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Consensus engine started",
		"port", cfg.Server.Port,
		"sources", cfg.Advisory.Sources,
		"dedup", cfg.Dedup.Backend,
	)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "HTTP shutdown failed", err)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Tracer shutdown failed", "error", err)
	}
}
