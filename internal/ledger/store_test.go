package ledger

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agents/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), DefaultSeed()))
	return s
}

func TestSeedAndBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		want int
	}{
		{"Alice", 15},
		{"Bob", 12},
		{"Charlie", 15},
	}
	for _, tc := range cases {
		got, err := s.Balance(ctx, tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Spend some days, then reseed: the spent balance must survive.
	require.NoError(t, s.AddRequest(ctx, "Alice", "2025-05-05", 5))
	require.NoError(t, s.Seed(ctx, DefaultSeed()))

	got, err := s.Balance(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestBalanceUnknownEmployee(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Balance(context.Background(), "Mallory")
	assert.ErrorIs(t, err, domain.ErrUnknownEmployee)
}

func TestAddRequestGrantsAndRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddRequest(ctx, "Bob", "2025-06-01", 4))

	balance, err := s.Balance(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 8, balance)

	history, err := s.RequestsFor(ctx, "Bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-06-01", history[0].StartDay)
	assert.Equal(t, 4, history[0].TotalDays)
}

func TestAddRequestInsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AddRequest(ctx, "Bob", "2025-06-01", 13)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "12 remaining")

	balance, err := s.Balance(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 12, balance)

	history, err := s.RequestsFor(ctx, "Bob")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAddRequestExactBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Draining to exactly zero is allowed.
	require.NoError(t, s.AddRequest(ctx, "Bob", "2025-06-01", 12))

	balance, err := s.Balance(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	err = s.AddRequest(ctx, "Bob", "2025-07-01", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestAddRequestInvalidAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, days := range []int{0, -1, -100} {
		err := s.AddRequest(ctx, "Alice", "2025-06-01", days)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "days=%d", days)
	}

	// Validation failures never touch the tables.
	balance, err := s.Balance(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 15, balance)
}

func TestAddRequestUnknownEmployee(t *testing.T) {
	s := newTestStore(t)

	err := s.AddRequest(context.Background(), "Mallory", "2025-06-01", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownEmployee)
}

func TestConcurrentRequestsExactlyOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Bob has 12 days. Five concurrent requests for all 12: the ledger must
	// grant exactly one and reject the rest.
	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.AddRequest(ctx, "Bob", "2025-06-01", 12)
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 1, granted)

	balance, err := s.Balance(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	history, err := s.RequestsFor(ctx, "Bob")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestVerifyConsistencyToleratesSeedBaseline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seeded consumed_days with no history rows is the expected baseline.
	require.NoError(t, s.VerifyConsistency(ctx, "Charlie"))

	require.NoError(t, s.AddRequest(ctx, "Charlie", "2025-08-01", 3))
	require.NoError(t, s.VerifyConsistency(ctx, "Charlie"))
}

func TestVerifyConsistencyFreezesOnDrift(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inject a history row the balance column knows nothing about.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeoff_history (employee_id, start_day, total_days)
		SELECT id, '2025-01-01', 99 FROM employee WHERE name = 'Alice'`)
	require.NoError(t, err)

	err = s.VerifyConsistency(ctx, "Alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupt)

	// Writes are frozen until the operator intervenes.
	err = s.AddRequest(ctx, "Alice", "2025-06-01", 1)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupt)

	// Other employees are unaffected.
	require.NoError(t, s.AddRequest(ctx, "Bob", "2025-06-01", 1))

	// Unfreeze re-arms the check rather than blindly allowing writes.
	s.Unfreeze("Alice")
	err = s.AddRequest(ctx, "Alice", "2025-06-01", 1)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupt)
}

func TestEmployeesRoster(t *testing.T) {
	s := newTestStore(t)

	roster, err := s.Employees(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, "Alice", roster[0].Name)
	assert.Equal(t, 20, roster[0].AllowedDays)
	assert.Equal(t, 5, roster[0].ConsumedDays)
	assert.Equal(t, 15, roster[0].Remaining())
}
