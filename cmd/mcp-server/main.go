// Package main provides the MCP server entry point for docqa.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/logger"
	mcpserver "github.com/bull/docqa/internal/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Configure("INFO").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// stdout carries the stdio transport, so logs go to stderr
	log := logger.Configure(cfg.LogLevel)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err = run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run serves MCP until ctx is done. Resources are released before it returns.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Store:            a.Store,
		Ingester:         a.Pipeline,
		URLs:             a.Loader,
		Answerer:         a.Engine,
		History:          a.History,
		HostedEmbeddings: cfg.HostedEmbeddings(),
		HostedLLM:        cfg.HostedLLM(),
	})

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mcpserver.NewMux(server, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	})
	defer stop()

	if cfg.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		log.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients
	// Also start HTTP health endpoint in background for local testing
	go func() {
		log.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Health server error", "error", err)
		}
	}()
	defer httpServer.Close()

	log.Info("Starting docqa MCP server (stdio mode)")
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}
