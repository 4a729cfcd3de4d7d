// Package main runs the legal document HTTP API and MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/legal-rag/internal/api"
	"github.com/bull/legal-rag/internal/app"
	"github.com/bull/legal-rag/internal/config"
	mcpserver "github.com/bull/legal-rag/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	// stdout belongs to the MCP stdio transport
	logger := app.NewLogger(os.Stderr, cfg.SlogLevel())
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpCfg := &mcpserver.Config{Retriever: a.Retriever, Index: a.Index, Logger: logger}
	opts := api.Options{
		Ingester:  a.Pipeline,
		Retriever: a.Retriever,
		Health:    a.Index,
		TopK:      cfg.Retrieval.TopK,
		Logger:    logger,
	}
	if a.Answers != nil {
		mcpCfg.Asker = a.Answers
		opts.Asker = a.Answers
	}

	server := mcpserver.NewServer(mcpCfg)
	opts.MCP = mcpserver.NewHTTPHandler(server, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mode", cfg.Server.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.Server.Mode == "stdio" {
		// The HTTP listener stays up for health checks.
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			shutdown(httpServer, logger)
			return fmt.Errorf("mcp stdio: %w", err)
		}
	} else {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		}
	}

	shutdown(httpServer, logger)
	return nil
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
}
