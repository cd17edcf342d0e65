package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agents/internal/domain"
	"hr-agents/internal/ledger"
	"hr-agents/internal/policy"
	"hr-agents/internal/timeoff"
)

func newTimeoffTestServer(t *testing.T) *TimeoffServer {
	t.Helper()
	store, err := ledger.NewStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background(), ledger.DefaultSeed()))
	return NewTimeoffServer(timeoff.NewService(store, slog.Default()), slog.Default())
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestGetTimeoffBalance(t *testing.T) {
	s := newTimeoffTestServer(t)

	result, err := s.handleBalance(context.Background(), callRequest("get_timeoff_balance", map[string]any{
		"employee_name": "Alice",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "15", resultText(t, result))
}

func TestGetTimeoffBalanceUnknownEmployee(t *testing.T) {
	s := newTimeoffTestServer(t)

	result, err := s.handleBalance(context.Background(), callRequest("get_timeoff_balance", map[string]any{
		"employee_name": "Mallory",
	}))
	require.NoError(t, err, "domain failures are tool results, not protocol errors")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No employee with that name")
}

func TestGetTimeoffBalanceMissingArgument(t *testing.T) {
	s := newTimeoffTestServer(t)

	result, err := s.handleBalance(context.Background(), callRequest("get_timeoff_balance", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "employee_name is required")
}

func TestRequestTimeoff(t *testing.T) {
	s := newTimeoffTestServer(t)
	ctx := context.Background()

	result, err := s.handleRequest(ctx, callRequest("request_timeoff", map[string]any{
		"employee_name": "Alice",
		"start_date":    "2025-05-05",
		"total_days":    5,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "Successfully added timeoff request for 5 days for employee Alice", resultText(t, result))

	balance, err := s.handleBalance(ctx, callRequest("get_timeoff_balance", map[string]any{
		"employee_name": "Alice",
	}))
	require.NoError(t, err)
	assert.Equal(t, "10", resultText(t, balance))
}

func TestRequestTimeoffErrors(t *testing.T) {
	s := newTimeoffTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			"insufficient balance",
			map[string]any{"employee_name": "Bob", "start_date": "2025-05-05", "total_days": 99},
			"does not have enough time-off balance",
		},
		{
			"zero days",
			map[string]any{"employee_name": "Bob", "start_date": "2025-05-05", "total_days": 0},
			"positive whole number",
		},
		{
			"unknown employee",
			map[string]any{"employee_name": "Mallory", "start_date": "2025-05-05", "total_days": 1},
			"No employee with that name",
		},
		{
			"bad date",
			map[string]any{"employee_name": "Bob", "start_date": "garbage", "total_days": 1},
			"YYYY-MM-DD",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleRequest(ctx, callRequest("request_timeoff", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tc.want)
		})
	}
}

func TestTimeoffPrompt(t *testing.T) {
	s := newTimeoffTestServer(t)

	result, err := s.handlePrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "get_llm_prompt",
			Arguments: map[string]string{"user": "Alice", "prompt": "What is my balance?"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "Action: What is my balance?")
	assert.Contains(t, tc.Text, "user Alice")
}

func TestTimeoffPromptMissingArguments(t *testing.T) {
	s := newTimeoffTestServer(t)

	_, err := s.handlePrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "get_llm_prompt"},
	})
	assert.Error(t, err)
}

func TestTimeoffRosterResource(t *testing.T) {
	s := newTimeoffTestServer(t)

	contents, err := s.handleRoster(context.Background(), mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: "timeoff://employees"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	tc, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", tc.MIMEType)

	var roster []domain.Employee
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &roster))
	require.Len(t, roster, 3)
	assert.Equal(t, "Charlie", roster[2].Name)
}

// --- policy server ---

const testPolicyDoc = `Remote Work Policy

Employees may work remotely up to two days per week with manager approval.

Sick Leave

Employees receive ten paid sick days per year.`

func newPolicyTestServer() *PolicyServer {
	return NewPolicyServer(policy.NewIndex(testPolicyDoc), 3, slog.Default())
}

func TestQueryPolicies(t *testing.T) {
	s := newPolicyTestServer()

	result, err := s.handleQuery(context.Background(), callRequest("query_policies", map[string]any{
		"query": "What is the remote work policy?",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "work remotely up to two days")
}

func TestQueryPoliciesNoMatch(t *testing.T) {
	s := newPolicyTestServer()

	result, err := s.handleQuery(context.Background(), callRequest("query_policies", map[string]any{
		"query": "quantum chromodynamics",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No matching policy passages")
}

func TestQueryPoliciesMissingArgument(t *testing.T) {
	s := newPolicyTestServer()

	result, err := s.handleQuery(context.Background(), callRequest("query_policies", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestPolicyPrompt(t *testing.T) {
	s := newPolicyTestServer()

	result, err := s.handlePrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "get_llm_prompt",
			Arguments: map[string]string{"query": "What is the sick leave policy?"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "Query: What is the sick leave policy?")
	assert.Contains(t, tc.Text, "Do not make up any information")
}

func TestPolicyDocumentResource(t *testing.T) {
	s := newPolicyTestServer()

	contents, err := s.handleDocument(context.Background(), mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: "policy://document"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	tc, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "text/plain", tc.MIMEType)
	assert.Contains(t, tc.Text, "ten paid sick days")
}
