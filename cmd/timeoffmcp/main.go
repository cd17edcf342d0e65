// Command timeoffmcp serves the time-off ledger over MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcphttp "github.com/mark3labs/mcp-go/server"

	"hr-agents/internal/infra/config"
	"hr-agents/internal/infra/logger"
	"hr-agents/internal/infra/middleware"
	"hr-agents/internal/ledger"
	"hr-agents/internal/mcpserver"
	"hr-agents/internal/timeoff"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.NewStore(cfg.Ledger.Path, log)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer store.Close()

	if err := store.Seed(ctx, ledger.DefaultSeed()); err != nil {
		return fmt.Errorf("seed ledger: %w", err)
	}

	svc := timeoff.NewService(store, log)
	mcpSrv := mcpserver.NewTimeoffServer(svc, log)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcphttp.NewStreamableHTTPServer(mcpSrv.MCPServer()))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	handler := middleware.SecurityHeaders(middleware.RateLimit(ctx, 300, 30)(mux))

	srv := &http.Server{
		Addr:         cfg.Ledger.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("timeoff mcp server starting", "addr", cfg.Ledger.Addr, "db", cfg.Ledger.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	log.Info("timeoff mcp server shutting down")
	return srv.Shutdown(shutdownCtx)
}
