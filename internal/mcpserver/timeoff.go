// Package mcpserver exposes the time-off ledger and the policy index over
// the Model Context Protocol so tool-calling agents can reach them.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"hr-agents/internal/domain"
	"hr-agents/internal/timeoff"
)

// TimeoffServer wraps the MCP server with the time-off service layer.
type TimeoffServer struct {
	mcpServer *mcpserver.MCPServer
	svc       *timeoff.Service
	logger    *slog.Logger
}

// NewTimeoffServer creates and configures the time-off MCP server with its
// tools, prompt, and resource.
func NewTimeoffServer(svc *timeoff.Service, logger *slog.Logger) *TimeoffServer {
	s := &TimeoffServer{
		svc:    svc,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"time-off-mcp-server",
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
func (s *TimeoffServer) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *TimeoffServer) registerTools() {
	// get_timeoff_balance reads the remaining balance.
	s.mcpServer.AddTool(
		mcplib.NewTool("get_timeoff_balance",
			mcplib.WithDescription("Get the timeoff balance for the employee, given their name."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("employee_name",
				mcplib.Description("Name of the employee to look up"),
				mcplib.Required(),
			),
		),
		s.handleBalance,
	)

	// request_timeoff files a request against the ledger.
	s.mcpServer.AddTool(
		mcplib.NewTool("request_timeoff",
			mcplib.WithDescription("Request timeoff for an employee by employee name with start date and total days including start date."),
			mcplib.WithString("employee_name",
				mcplib.Description("Name of the employee requesting time off"),
				mcplib.Required(),
			),
			mcplib.WithString("start_date",
				mcplib.Description("First day of the time off, YYYY-MM-DD"),
				mcplib.Required(),
			),
			mcplib.WithNumber("total_days",
				mcplib.Description("Number of days requested, including the start date"),
				mcplib.Required(),
				mcplib.Min(1),
			),
		),
		s.handleRequest,
	)
}

func (s *TimeoffServer) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("get_llm_prompt",
			mcplib.WithPromptDescription("Generates a prompt for the LLM to use to answer the query, given a user and a query"),
			mcplib.WithArgument("user",
				mcplib.ArgumentDescription("The user the tasks are executed for"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("prompt",
				mcplib.ArgumentDescription("The user's query"),
				mcplib.RequiredArgument(),
			),
		),
		s.handlePrompt,
	)
}

func (s *TimeoffServer) registerResources() {
	// timeoff://employees is the full roster with balances.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"timeoff://employees",
			"Employee Roster",
			mcplib.WithResourceDescription("All employees with their allowed and consumed time-off days"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRoster,
	)
}

func (s *TimeoffServer) handleBalance(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("employee_name", "")
	if name == "" {
		return errorResult("employee_name is required"), nil
	}

	s.logger.Info("balance lookup", "employee", name)

	balance, err := s.svc.QueryBalance(ctx, name)
	if err != nil {
		return errorResult(explainLedgerError(err)), nil
	}
	return textResult(fmt.Sprintf("%d", balance)), nil
}

func (s *TimeoffServer) handleRequest(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("employee_name", "")
	startDate := request.GetString("start_date", "")
	totalDays := request.GetInt("total_days", 0)
	if name == "" || startDate == "" {
		return errorResult("employee_name and start_date are required"), nil
	}

	s.logger.Info("timeoff request", "employee", name, "start_date", startDate, "total_days", totalDays)

	msg, err := s.svc.SubmitRequest(ctx, name, startDate, totalDays)
	if err != nil {
		return errorResult(explainLedgerError(err)), nil
	}
	return textResult(msg), nil
}

func (s *TimeoffServer) handlePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	user := request.Params.Arguments["user"]
	prompt := request.Params.Arguments["prompt"]
	if user == "" || prompt == "" {
		return nil, fmt.Errorf("user and prompt arguments are required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Time-off assistant instructions for %s", user),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: timeoff.BuildContext(user, prompt),
				},
			},
		},
	}, nil
}

func (s *TimeoffServer) handleRoster(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	roster, err := s.svc.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: roster: %w", err)
	}

	data, err := json.MarshalIndent(roster, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal roster: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// explainLedgerError turns typed ledger errors into plain language the model
// can relay to the user. Unknown errors pass through as-is.
func explainLedgerError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownEmployee):
		return "No employee with that name exists in the time-off system."
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "The employee does not have enough time-off balance for this request: " + err.Error()
	case errors.Is(err, domain.ErrInvalidAmount):
		return "The number of days must be a positive whole number."
	case errors.Is(err, domain.ErrLedgerCorrupt):
		return "The time-off ledger for this employee is under review and cannot accept requests right now."
	default:
		return err.Error()
	}
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
