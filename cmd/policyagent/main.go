// Command policyagent exposes the HR policy agent over the A2A protocol.
// Each request spins up a fresh agent session backed by the policy MCP
// server's retrieval tools.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hr-agents/internal/a2a"
	"hr-agents/internal/adapter/llm"
	"hr-agents/internal/adapter/mcptool"
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

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	provider, err := llm.NewProvider(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	agentCfg := cfg.Agents.Policy
	card := a2a.AgentCard{
		Name:        "HR Policy Agent",
		Description: "Answers questions about the organization's HR policies.",
		URL:         agentCfg.PublicURL,
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{
				ID:          "policy_qa",
				Name:        "Policy Questions",
				Description: "Answers HR policy questions grounded in the policy document.",
				Tags:        []string{"hr", "policy"},
				Examples:    []string{"What is the remote work policy?", "How many sick days do employees get?"},
			},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}

	executor := a2a.ExecutorFunc(func(ctx context.Context, input string) (string, error) {
		var payload struct {
			User   string `json:"user"`
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal([]byte(input), &payload); err != nil {
			return "", fmt.Errorf("decode dispatch payload: %w", err)
		}
		if payload.Prompt == "" {
			return "", fmt.Errorf("dispatch payload has no prompt")
		}

		bridge, err := mcptool.Connect(ctx, agentCfg, log)
		if err != nil {
			return "", fmt.Errorf("connect mcp server: %w", err)
		}
		defer bridge.Close()

		seed, err := bridge.Prompt(ctx, "get_llm_prompt", map[string]string{
			"query": payload.Prompt,
		})
		if err != nil {
			return "", fmt.Errorf("fetch agent prompt: %w", err)
		}

		agent := usecase.NewAgent(usecase.AgentDeps{
			LLM:           provider,
			Tools:         bridge,
			Logger:        log,
			MaxIterations: agentCfg.MaxIterations,
			Temperature:   cfg.LLM.Provider.Temperature,
		})
		return agent.Run(ctx, seed)
	})

	srv := a2a.NewServer(card, executor, agentCfg.Addr, log)
	log.Info("policy agent starting", "addr", agentCfg.Addr, "mcp_url", agentCfg.MCPURL)
	return srv.Start(ctx)
}
