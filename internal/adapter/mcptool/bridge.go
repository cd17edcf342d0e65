// Package mcptool connects to an MCP server and exposes its tools, prompts,
// and resources to the agent runtime.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/config"
)

// mcpCallTimeout is the default per-call timeout for MCP tool execution.
const mcpCallTimeout = 30 * time.Second

// mcpClient abstracts the MCP client interface for testability.
type mcpClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, request mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)
	Close() error
}

var _ domain.ToolExecutor = (*Bridge)(nil)

// Bridge holds a connection to one MCP server and adapts its tools into
// domain.Tool instances the agent loop can execute.
type Bridge struct {
	client mcpClient
	tools  map[string]domain.Tool
	order  []string // discovery order, for stable Schemas()
	logger *slog.Logger
	mu     sync.RWMutex
}

// Connect dials the MCP server described by cfg, initializes the session,
// and discovers the server's tools.
func Connect(ctx context.Context, cfg config.AgentConfig, logger *slog.Logger) (*Bridge, error) {
	var c mcpClient
	var err error

	switch cfg.MCPTransport {
	case "stdio":
		parts := strings.Fields(cfg.MCPCommand)
		if len(parts) == 0 {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		c, err = mcpclient.NewStdioMCPClient(parts[0], nil, parts[1:]...)
		if err != nil {
			return nil, fmt.Errorf("create stdio client: %w", err)
		}
	case "http", "":
		t, tErr := transport.NewStreamableHTTP(cfg.MCPURL)
		if tErr != nil {
			return nil, fmt.Errorf("create http transport: %w", tErr)
		}
		httpClient := mcpclient.NewClient(t)
		if err = httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("start http client: %w", err)
		}
		c = httpClient
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.MCPTransport)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "hr-agents",
		Version: "1.0.0",
	}

	if ic, ok := c.(interface {
		Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	}); ok {
		if _, err = ic.Initialize(ctx, initReq); err != nil {
			c.Close()
			return nil, domain.WrapOp("initialize", err)
		}
	}

	logger.Info("mcp server connected", "url", cfg.MCPURL, "transport", cfg.MCPTransport)

	return newBridge(ctx, c, logger)
}

// newBridge wraps an already-connected client (also used in tests).
func newBridge(ctx context.Context, c mcpClient, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		client: c,
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
	if err := b.discoverTools(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("discover tools: %w", err)
	}
	return b, nil
}

func (b *Bridge) discoverTools(ctx context.Context) error {
	result, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	for _, t := range result.Tools {
		adapter := newToolAdapter(b.client, t, b.logger)
		b.tools[t.Name] = adapter
		b.order = append(b.order, t.Name)
		b.logger.Debug("mcp tool discovered", "tool", t.Name)
	}

	b.logger.Info("mcp tools discovered", "count", len(result.Tools))
	return nil
}

// Get implements domain.ToolExecutor.
func (b *Bridge) Get(name string) (domain.Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// Schemas implements domain.ToolExecutor. Order follows discovery.
func (b *Bridge) Schemas() []domain.ToolSchema {
	b.mu.RLock()
	defer b.mu.RUnlock()
	schemas := make([]domain.ToolSchema, 0, len(b.order))
	for _, name := range b.order {
		schemas = append(schemas, b.tools[name].Schema())
	}
	return schemas
}

// Prompt fetches a named prompt from the server and converts its messages
// into domain messages.
func (b *Bridge) Prompt(ctx context.Context, name string, args map[string]string) ([]domain.Message, error) {
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := b.client.GetPrompt(ctx, req)
	if err != nil {
		return nil, domain.WrapOp("get prompt", err)
	}

	msgs := make([]domain.Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		role := domain.RoleUser
		if m.Role == mcp.RoleAssistant {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.Message{
			Role:    role,
			Content: contentText(m.Content),
		})
	}
	return msgs, nil
}

// Resource reads a resource by URI and returns its text contents joined
// with newlines.
func (b *Bridge) Resource(ctx context.Context, uri string) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	result, err := b.client.ReadResource(ctx, req)
	if err != nil {
		return "", domain.WrapOp("read resource", err)
	}

	var parts []string
	for _, c := range result.Contents {
		if tc, ok := c.(mcp.TextResourceContents); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Close shuts down the MCP connection.
func (b *Bridge) Close() {
	if err := b.client.Close(); err != nil {
		b.logger.Warn("mcp client close error", "error", err)
	}
}

// --- Tool adapter ---

// toolAdapter wraps a single MCP tool as a domain.Tool.
type toolAdapter struct {
	client  mcpClient
	mcpTool mcp.Tool
	logger  *slog.Logger
}

func newToolAdapter(client mcpClient, t mcp.Tool, logger *slog.Logger) *toolAdapter {
	return &toolAdapter{
		client:  client,
		mcpTool: t,
		logger:  logger,
	}
}

func (a *toolAdapter) Name() string { return a.mcpTool.Name }

func (a *toolAdapter) Description() string {
	desc := a.mcpTool.Description
	if desc == "" {
		desc = fmt.Sprintf("MCP tool %q", a.mcpTool.Name)
	}
	return desc
}

func (a *toolAdapter) Schema() domain.ToolSchema {
	params := json.RawMessage(`{"type": "object"}`)
	if a.mcpTool.InputSchema.Properties != nil || a.mcpTool.InputSchema.Required != nil {
		if data, err := json.Marshal(a.mcpTool.InputSchema); err == nil {
			params = data
		}
	}

	return domain.ToolSchema{
		Name:        a.mcpTool.Name,
		Description: a.Description(),
		Parameters:  params,
	}
}

func (a *toolAdapter) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var args map[string]interface{}
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &args); err != nil {
			return &domain.ToolResult{
				Content: fmt.Sprintf("invalid arguments: %v", err),
				IsError: true,
			}, nil
		}
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = a.mcpTool.Name
	callReq.Params.Arguments = args

	a.logger.Debug("mcp tool call", "tool", a.mcpTool.Name)

	callCtx, cancel := context.WithTimeout(ctx, mcpCallTimeout)
	defer cancel()

	result, err := a.client.CallTool(callCtx, callReq)
	if err != nil {
		// Transport errors surface to the model as tool errors so the
		// loop can report them instead of aborting the turn.
		return &domain.ToolResult{
			Content: fmt.Sprintf("MCP tool error: %v", err),
			IsError: true,
		}, nil
	}

	return &domain.ToolResult{
		Content: extractContent(result),
		IsError: result.IsError,
	}, nil
}

// extractContent converts MCP CallToolResult content to a string.
func extractContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		parts = append(parts, contentText(c))
	}
	return strings.Join(parts, "\n")
}

func contentText(c mcp.Content) string {
	switch v := c.(type) {
	case mcp.TextContent:
		return v.Text
	case *mcp.TextContent:
		return v.Text
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return ""
	}
}
