package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"hr-agents/internal/policy"
)

// PolicyServer wraps the MCP server with the policy index.
type PolicyServer struct {
	mcpServer *mcpserver.MCPServer
	index     *policy.Index
	topK      int
	logger    *slog.Logger
}

// NewPolicyServer creates and configures the HR policies MCP server.
// topK is the number of passages returned per query.
func NewPolicyServer(index *policy.Index, topK int, logger *slog.Logger) *PolicyServer {
	if topK <= 0 {
		topK = 3
	}
	s := &PolicyServer{
		index:  index,
		topK:   topK,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"hr-policies-mcp-server",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *PolicyServer) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *PolicyServer) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("query_policies",
			mcplib.WithDescription("Search the organization's HR policy document and return the most relevant passages."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("Natural language question about HR policies"),
				mcplib.Required(),
			),
		),
		s.handleQuery,
	)
}

func (s *PolicyServer) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("get_llm_prompt",
			mcplib.WithPromptDescription("Generates a prompt for the LLM to use to answer the query"),
			mcplib.WithArgument("query",
				mcplib.ArgumentDescription("The user's policy question"),
				mcplib.RequiredArgument(),
			),
		),
		s.handlePrompt,
	)
}

func (s *PolicyServer) registerResources() {
	// policy://document is the full policy document text.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"policy://document",
			"HR Policy Document",
			mcplib.WithResourceDescription("The complete HR policy document text"),
			mcplib.WithMIMEType("text/plain"),
		),
		s.handleDocument,
	)
}

func (s *PolicyServer) handleQuery(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}

	s.logger.Info("policy query", "query", query)

	passages := s.index.Search(query, s.topK)
	if len(passages) == 0 {
		return textResult("No matching policy passages found."), nil
	}
	return textResult(strings.Join(passages, "\n\n---\n\n")), nil
}

func (s *PolicyServer) handlePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	query := request.Params.Arguments["query"]
	if query == "" {
		return nil, fmt.Errorf("query argument is required")
	}

	text := fmt.Sprintf(`You are a helpful HR assistant. Answer the following query about HR policies
by only using the tools provided to you. Do not make up any information.

Query: %s`, query)

	return &mcplib.GetPromptResult{
		Description: "HR policy assistant instructions",
		Messages: []mcplib.PromptMessage{
			{
				Role:    mcplib.RoleUser,
				Content: mcplib.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}

func (s *PolicyServer) handleDocument(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     s.index.Text(),
		},
	}, nil
}
