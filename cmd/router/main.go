// Command router is the interactive front door: it reads queries from
// stdin, classifies each one, and dispatches it to the policy or time-off
// agent over A2A.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hr-agents/internal/a2a"
	"hr-agents/internal/adapter/llm"
	"hr-agents/internal/infra/config"
	"hr-agents/internal/infra/logger"
	"hr-agents/internal/infra/tracer"
	"hr-agents/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	user := flag.String("user", "", "acting user (overrides config)")
	flag.Parse()

	// Load .env if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *user != "" {
		cfg.Router.User = *user
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	provider, err := llm.NewProvider(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	router := usecase.NewRouter(usecase.RouterDeps{
		LLM:     provider,
		Policy:  a2a.NewClient(cfg.Router.PolicyEndpoint, log),
		Timeoff: a2a.NewClient(cfg.Router.TimeoffEndpoint, log),
		Logger:  log,
		User:    cfg.Router.User,
	})

	fmt.Printf("HR assistant ready (user: %s). Type a question, or Ctrl-D to quit.\n", cfg.Router.User)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		query := scanner.Text()
		if query == "" {
			fmt.Print("> ")
			continue
		}

		turnCtx, turnCancel := context.WithTimeout(ctx, cfg.Router.DispatchTimeout)
		answer, err := router.Route(turnCtx, usecase.NewConversation(query))
		turnCancel()
		if err != nil {
			// Classification failures end the turn, not the session.
			log.Error("turn failed", "error", err)
			fmt.Printf("Something went wrong handling that request: %v\n", err)
		} else {
			fmt.Println(answer)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
		fmt.Print("> ")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	fmt.Println()
	return nil
}
