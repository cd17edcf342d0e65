package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/tracer"
)

const (
	clientTimeout    = 30 * time.Second
	maxResponseBytes = 4 << 20
)

var _ domain.Dispatcher = (*Client)(nil)

// Client talks to one remote agent. It implements domain.Dispatcher so the
// router can treat remote agents as plain branches.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a client for the agent at endpoint, e.g.
// "http://localhost:9001".
func NewClient(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: clientTimeout},
		logger:   logger,
	}
}

// dispatchPayload is the JSON document carried inside the message's single
// text part.
type dispatchPayload struct {
	User   string `json:"user"`
	Prompt string `json:"prompt"`
}

// Dispatch sends the user's prompt to the remote agent and returns its text
// answer. The agent card is fetched first; an unreachable or non-OK card
// endpoint means the agent is down and maps to ErrAgentUnreachable. There
// are no automatic retries: the caller decides how to surface failures.
func (c *Client) Dispatch(ctx context.Context, user, prompt string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "a2a.dispatch")
	defer span.End()

	card, err := c.FetchCard(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	c.logger.Debug("agent card fetched", "agent", card.Name, "url", c.endpoint)

	payload, err := json.Marshal(dispatchPayload{User: user, Prompt: prompt})
	if err != nil {
		return "", domain.WrapOp("encode payload", err)
	}

	msg := Message{
		Role:      "user",
		MessageID: ulid.Make().String(),
		Parts:     []Part{{Kind: "text", Text: string(payload)}},
	}

	answer, err := c.sendMessage(ctx, msg)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	tracer.SetOK(span)
	return answer, nil
}

// FetchCard retrieves the remote agent's card.
func (c *Client) FetchCard(ctx context.Context) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+AgentCardPath, nil)
	if err != nil {
		return nil, domain.WrapOp("build card request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrAgentUnreachable, c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: card returned %d", domain.ErrAgentUnreachable, c.endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.WrapOp("read card", err)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return &card, nil
}

func (c *Client) sendMessage(ctx context.Context, msg Message) (string, error) {
	params, err := json.Marshal(sendParams{Message: msg})
	if err != nil {
		return "", domain.WrapOp("encode params", err)
	}

	rpcReq := rpcRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "message/send",
		Params:  params,
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return "", domain.WrapOp("encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return "", domain.WrapOp("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrAgentUnreachable, c.endpoint, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return "", domain.WrapOp("read response", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("agent error: %s (code %d)", rpcResp.Error.Message, rpcResp.Error.Code)
	}

	return extractAnswer(rpcResp.Result)
}

// extractAnswer pulls the answer text out of a message/send result. The
// result may be a single message or an array of them; the answer is the
// last non-empty text part across all of them, matching how the remote
// agents report their final state.
func extractAnswer(result json.RawMessage) (string, error) {
	if len(result) == 0 {
		return "", fmt.Errorf("%w: empty result", domain.ErrMalformedResponse)
	}

	var messages []Message
	var single Message
	if err := json.Unmarshal(result, &single); err == nil {
		messages = []Message{single}
	} else if err := json.Unmarshal(result, &messages); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	answer := ""
	for _, m := range messages {
		for _, p := range m.Parts {
			if p.Kind == "text" && p.Text != "" {
				answer = p.Text
			}
		}
	}
	return answer, nil
}
