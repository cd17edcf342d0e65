package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/config"
)

type mockProvider struct {
	name     string
	chatFunc func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

func (m *mockProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if m.chatFunc == nil {
		return &domain.ChatResponse{}, nil
	}
	return m.chatFunc(ctx, req)
}

func (m *mockProvider) Name() string { return m.name }

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		chatFunc: func(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
			return &domain.ChatResponse{Message: domain.Message{Content: "ok"}}, nil
		},
	}

	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, slog.Default())
	resp, err := cb.Chat(context.Background(), domain.ChatRequest{})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
}

func TestCircuitBreakerName(t *testing.T) {
	inner := &mockProvider{name: "ollama"}
	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, slog.Default())
	assert.Equal(t, "ollama", cb.Name())
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	callCount := 0
	inner := &mockProvider{
		name: "flaky",
		chatFunc: func(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
			callCount++
			return nil, errors.New("provider error")
		},
	}

	cfg := config.CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     5 * time.Second,
		Interval:    60 * time.Second,
	}
	cb := NewCircuitBreakerProvider(inner, cfg, slog.Default())

	// First 3 calls go through and fail.
	for i := 0; i < 3; i++ {
		_, err := cb.Chat(context.Background(), domain.ChatRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider error")
	}
	assert.Equal(t, 3, callCount)

	// Circuit should now be open.
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Next call should fail fast without reaching the provider.
	_, err := cb.Chat(context.Background(), domain.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 3, callCount, "provider should not be called when circuit is open")
}

func TestCircuitBreakerClosesAfterSuccess(t *testing.T) {
	shouldFail := true
	inner := &mockProvider{
		name: "recovering",
		chatFunc: func(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
			if shouldFail {
				return nil, errors.New("down")
			}
			return &domain.ChatResponse{Message: domain.Message{Content: "recovered"}}, nil
		},
	}

	cfg := config.CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     50 * time.Millisecond, // short timeout for testing
		Interval:    60 * time.Second,
	}
	cb := NewCircuitBreakerProvider(inner, cfg, slog.Default())

	// Trip the breaker.
	for i := 0; i < 2; i++ {
		cb.Chat(context.Background(), domain.ChatRequest{})
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Wait for half-open transition.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	// Half-open allows one probe through.
	shouldFail = false
	resp, err := cb.Chat(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Message.Content)

	// Circuit should be closed again.
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerPropagatesInnerErrors(t *testing.T) {
	sentinel := errors.New("specific error")
	inner := &mockProvider{
		name: "err",
		chatFunc: func(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
			return nil, sentinel
		},
	}

	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, slog.Default())
	_, err := cb.Chat(context.Background(), domain.ChatRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}
