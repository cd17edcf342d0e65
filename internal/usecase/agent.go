// Package usecase contains the agent loop and the intent router, the two
// orchestration layers that sit between transports and the domain.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/trace"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/tracer"
)

// Recovery loop constants.
const (
	maxLLMRetries  = 3
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 10 * time.Second
)

// AgentDeps holds injected dependencies for the agent.
type AgentDeps struct {
	LLM           domain.LLMProvider
	Tools         domain.ToolExecutor
	Logger        *slog.Logger
	MaxIterations int
	Temperature   float64
}

// Agent runs the bounded tool-calling loop: ask the model, execute any tool
// calls it emits, feed the results back, repeat until the model answers in
// plain text or the iteration cap is hit.
type Agent struct {
	deps AgentDeps
}

// NewAgent creates an agent with the given dependencies.
func NewAgent(deps AgentDeps) *Agent {
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = 10
	}
	return &Agent{deps: deps}
}

// Run executes the loop over the given seed messages and returns the model's
// final text answer. The seed slice is not mutated.
func (a *Agent) Run(ctx context.Context, seed []domain.Message) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.run")
	defer span.End()

	messages := make([]domain.Message, len(seed))
	copy(messages, seed)

	for i := 0; i < a.deps.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		span.AddEvent("agent.iteration", trace.WithAttributes(tracer.IntAttr("iteration", i)))

		req := domain.ChatRequest{
			Messages:    messages,
			Tools:       a.deps.Tools.Schemas(),
			Temperature: a.deps.Temperature,
		}

		resp, err := a.chatWithRetry(ctx, req)
		if err != nil {
			tracer.RecordError(span, err)
			return "", domain.WrapOp("agent chat", err)
		}

		msg := resp.Message
		messages = append(messages, msg)

		a.deps.Logger.Debug("llm response",
			"iteration", i,
			"tool_calls", len(msg.ToolCalls),
			"tokens", resp.Usage.TotalTokens,
		)

		// No tool calls means the model is done.
		if len(msg.ToolCalls) == 0 {
			tracer.SetOK(span)
			return msg.Content, nil
		}

		// Execute requested tools sequentially, in the order the model
		// emitted them, so results line up with the calls.
		for _, call := range msg.ToolCalls {
			messages = append(messages, a.executeTool(ctx, call))
		}
	}

	tracer.RecordError(span, domain.ErrMaxIterations)
	return "", domain.WrapOp("agent run", domain.ErrMaxIterations)
}

// executeTool runs a single tool call and returns the result as a tool-role
// message. Tool failures do not abort the loop: they are reported back to the
// model as message content so it can recover or explain.
func (a *Agent) executeTool(ctx context.Context, call domain.ToolCall) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "agent.execute_tool",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
	)
	defer span.End()

	toolMsg := func(content string) domain.Message {
		return domain.Message{
			Role:      domain.RoleTool,
			Name:      call.Name,
			Content:   content,
			ToolCalls: []domain.ToolCall{{ID: call.ID, Name: call.Name}},
			Timestamp: time.Now(),
		}
	}

	tool, err := a.deps.Tools.Get(call.Name)
	if err != nil {
		tracer.RecordError(span, err)
		return toolMsg(err.Error())
	}

	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		tracer.RecordError(span, err)
		return toolMsg(err.Error())
	}

	if result.IsError {
		a.deps.Logger.Warn("tool returned error result", "tool", call.Name)
	}
	tracer.SetOK(span)
	return toolMsg(result.Content)
}

// chatWithRetry calls the LLM with bounded exponential backoff. Context
// cancellation and bad credentials are not retried.
func (a *Agent) chatWithRetry(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxLLMRetries; attempt++ {
		resp, err := a.deps.LLM.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, domain.ErrAuthInvalid) {
			return nil, err
		}

		delay := retryBackoff(attempt)
		a.deps.Logger.Warn("llm call failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// retryBackoff computes exponential backoff with jitter.
func retryBackoff(attempt int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(attempt))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	// Add 0-25% jitter.
	jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
	return delay + jitter
}
