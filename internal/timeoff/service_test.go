package timeoff

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agents/internal/domain"
	"hr-agents/internal/ledger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := ledger.NewStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background(), ledger.DefaultSeed()))
	return NewService(store, slog.Default())
}

func TestBuildContextIsDeterministic(t *testing.T) {
	a := BuildContext("Alice", "What is my time off balance?")
	b := BuildContext("Alice", "What is my time off balance?")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "Action: What is my time off balance?")
	assert.Contains(t, a, "in terms of the user Alice")
}

func TestQueryBalance(t *testing.T) {
	svc := newTestService(t)

	balance, err := svc.QueryBalance(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 15, balance)

	_, err = svc.QueryBalance(context.Background(), "Mallory")
	assert.ErrorIs(t, err, domain.ErrUnknownEmployee)
}

func TestSubmitRequest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.SubmitRequest(ctx, "Alice", "2025-05-05", 5)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added timeoff request for 5 days for employee Alice", msg)

	balance, err := svc.QueryBalance(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	history, err := svc.History(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-05-05", history[0].StartDay)
}

func TestSubmitRequestBadDate(t *testing.T) {
	svc := newTestService(t)

	for _, date := range []string{"05-05-2025", "2025/05/05", "next monday", ""} {
		_, err := svc.SubmitRequest(context.Background(), "Alice", date, 2)
		require.Error(t, err, date)
		assert.Contains(t, err.Error(), "YYYY-MM-DD")
	}

	// Bad dates never reach the ledger.
	balance, err := svc.QueryBalance(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 15, balance)
}

func TestSubmitRequestLedgerErrorsPassThrough(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitRequest(ctx, "Bob", "2025-05-05", 99)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = svc.SubmitRequest(ctx, "Bob", "2025-05-05", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRoster(t *testing.T) {
	svc := newTestService(t)

	roster, err := svc.Roster(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, "Bob", roster[1].Name)
	assert.Equal(t, 12, roster[1].Remaining())
}
