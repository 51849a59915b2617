package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eyozy/tootpic/app/api"
	"github.com/Eyozy/tootpic/app/cache"
	"github.com/Eyozy/tootpic/app/cfg"
	"github.com/Eyozy/tootpic/app/fetch"
	"github.com/Eyozy/tootpic/app/platform"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting tootpic", "version", appCfg.Version)

	denylist := platform.NewDenylist()
	if appCfg.DenylistFile != "" {
		denylist, err = platform.NewDenylistFromFile(appCfg.DenylistFile)
		if err != nil {
			slog.Error("Failed to load denylist file", "file", appCfg.DenylistFile, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Denylist loaded", "domains", denylist.Size())

	resultCache, err := cache.New(
		appCfg.CacheSize,
		time.Duration(appCfg.CacheTTL)*time.Second,
		time.Duration(appCfg.CacheSweep)*time.Second,
	)
	if err != nil {
		slog.Error("Failed to create result cache", "error", err)
		os.Exit(1)
	}
	defer resultCache.Close()

	client := fetch.NewClient(appCfg.UserAgent, time.Duration(appCfg.RequestTimeout)*time.Second)
	service := fetch.NewService(client, resultCache, denylist)

	handler := api.NewHandler(service)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Cache sweep loop is stopped via defer
	slog.Info("Shutdown complete")
}
