// Command policymcp serves the HR policy document over MCP.
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
	"hr-agents/internal/mcpserver"
	"hr-agents/internal/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	stdio := flag.Bool("stdio", false, "serve over stdio instead of HTTP")
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

	index, err := policy.LoadIndex(cfg.Policy.DocumentPath)
	if err != nil {
		return fmt.Errorf("load policy document: %w", err)
	}

	mcpSrv := mcpserver.NewPolicyServer(index, cfg.Policy.TopK, log)

	if *stdio {
		return mcphttp.ServeStdio(mcpSrv.MCPServer())
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcphttp.NewStreamableHTTPServer(mcpSrv.MCPServer()))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	handler := middleware.SecurityHeaders(middleware.RateLimit(ctx, 300, 30)(mux))

	srv := &http.Server{
		Addr:         cfg.Policy.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("policy mcp server starting", "addr", cfg.Policy.Addr, "document", cfg.Policy.DocumentPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	log.Info("policy mcp server shutting down")
	return srv.Shutdown(shutdownCtx)
}
