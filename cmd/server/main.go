package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jo-hoe/goimages/internal/backend"
	"github.com/jo-hoe/goimages/internal/cache"
	"github.com/jo-hoe/goimages/internal/config"
	"github.com/jo-hoe/goimages/internal/core"
	"github.com/jo-hoe/goimages/internal/engine/native"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	// a missing .env file is fine, the environment may be set directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger())

	responseCache, err := cache.NewCache(cfg.Cache.Type, cfg.Cache.ConnectionString, cfg.Cache.TTL)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	opts := cfg.CoreOptions()
	opts.ReservedKeys = backend.HostKeys
	processor, err := core.NewProcessor(native.New(), opts)
	if err != nil {
		slog.Error("failed to initialize processor", "error", err)
		os.Exit(1)
	}

	fetcher := backend.NewFetcher(backend.FetcherOptions{
		Timeout:      cfg.Upstream.Timeout,
		MaxSize:      cfg.Upstream.MaxSize,
		MaxRedirects: cfg.Upstream.MaxRedirects,
		UserAgent:    cfg.Upstream.UserAgent,
	})

	server := backend.NewServer()
	apiService := backend.NewAPIService(processor, fetcher, responseCache)
	apiService.MaxBodySize = cfg.Upstream.MaxSize
	apiService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", cfg.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := responseCache.Close(); err != nil {
		slog.Error("cache close error", "error", err)
	}
}
