package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/config"
)

var _ domain.LLMProvider = (*OllamaProvider)(nil)

// Default Ollama timeouts: short connect (local), long response (model loading).
const (
	ollamaDefaultConnTimeout = 5 * time.Second
	ollamaDefaultRespTimeout = 300 * time.Second
)

// OllamaProvider wraps OpenAIProvider to work with the Ollama API.
// Ollama exposes an OpenAI-compatible endpoint at /v1, so chat is delegated
// to the inner OpenAI provider; the health check uses the native API.
type OllamaProvider struct {
	inner   *OpenAIProvider
	baseURL string // native Ollama API base (without /v1)
	client  *http.Client
	logger  *slog.Logger
}

// NewOllamaProvider creates an Ollama provider that delegates chat to
// OpenAIProvider via Ollama's OpenAI-compatible /v1 endpoint.
func NewOllamaProvider(cfg config.ProviderConfig, logger *slog.Logger) *OllamaProvider {
	ollamaCfg := cfg
	if ollamaCfg.ConnTimeout == 0 {
		ollamaCfg.ConnTimeout = ollamaDefaultConnTimeout
	}
	if ollamaCfg.RespTimeout == 0 {
		ollamaCfg.RespTimeout = ollamaDefaultRespTimeout
	}

	client := NewHTTPClient(ollamaCfg)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		inner: &OpenAIProvider{
			name:    cfg.Name,
			model:   cfg.Model,
			apiKey:  "", // Ollama doesn't need an API key
			baseURL: baseURL + "/v1",
			client:  client,
			logger:  logger,
		},
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OllamaProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *OllamaProvider) Name() string { return p.inner.Name() }

// IsHealthy checks if the Ollama server is reachable.
func (p *OllamaProvider) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return false
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()

	return httpResp.StatusCode == http.StatusOK
}

// Warmup sends a lightweight request to pre-load the configured model so the
// first real turn does not pay the model load latency.
func (p *OllamaProvider) Warmup(ctx context.Context) error {
	if !p.IsHealthy(ctx) {
		return fmt.Errorf("ollama server not reachable at %s", p.baseURL)
	}

	p.logger.Info("warming up Ollama model", "model", p.inner.model, "base_url", p.baseURL)
	_, err := p.Chat(ctx, domain.ChatRequest{
		Messages:  []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return domain.WrapOp("warmup", err)
}

// NewProvider builds the configured LLM provider, optionally wrapped with a
// circuit breaker. "ollama" is the default type.
func NewProvider(cfg config.LLMConfig, logger *slog.Logger) (domain.LLMProvider, error) {
	var provider domain.LLMProvider
	switch cfg.Provider.Type {
	case "ollama", "":
		provider = NewOllamaProvider(cfg.Provider, logger)
	case "openai":
		provider = NewOpenAIProvider(cfg.Provider, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider type %q", cfg.Provider.Type)
	}

	if cfg.CircuitBreaker.Enabled {
		provider = NewCircuitBreakerProvider(provider, cfg.CircuitBreaker, logger)
	}
	return provider, nil
}
