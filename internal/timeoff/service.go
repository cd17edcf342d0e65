// Package timeoff is the service layer over the ledger: input validation,
// confirmation messages, and the assistant instruction template.
package timeoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hr-agents/internal/domain"
	"hr-agents/internal/ledger"
)

const dateLayout = "2006-01-02"

// Service exposes the ledger operations the MCP tools need.
type Service struct {
	store  *ledger.Store
	logger *slog.Logger
}

// NewService wraps a ledger store.
func NewService(store *ledger.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// BuildContext renders the instruction the assistant works from. The output
// is deterministic: same user and prompt, same text.
func BuildContext(user, prompt string) string {
	return fmt.Sprintf(`You are a helpful timeoff assistant.
Execute the action requested in the query using the tools provided to you.
Action: %s
The tasks need to be executed in terms of the user %s`, prompt, user)
}

// QueryBalance returns the employee's remaining days.
func (s *Service) QueryBalance(ctx context.Context, name string) (int, error) {
	return s.store.Balance(ctx, name)
}

// SubmitRequest validates and files a time-off request, returning a
// confirmation message on success.
func (s *Service) SubmitRequest(ctx context.Context, name, startDate string, totalDays int) (string, error) {
	if _, err := time.Parse(dateLayout, startDate); err != nil {
		return "", fmt.Errorf("start date must be YYYY-MM-DD, got %q", startDate)
	}
	if err := s.store.AddRequest(ctx, name, startDate, totalDays); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully added timeoff request for %d days for employee %s", totalDays, name), nil
}

// History lists the employee's granted requests.
func (s *Service) History(ctx context.Context, name string) ([]domain.TimeoffRequest, error) {
	return s.store.RequestsFor(ctx, name)
}

// Roster lists all employees with their balances.
func (s *Service) Roster(ctx context.Context) ([]domain.Employee, error) {
	return s.store.Employees(ctx)
}
