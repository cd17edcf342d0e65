package domain

import "fmt"

// Sentinel errors for the domain layer.
var (
	// Ledger errors.
	ErrUnknownEmployee     = fmt.Errorf("employee not found")
	ErrInsufficientBalance = fmt.Errorf("insufficient time off balance")
	ErrInvalidAmount       = fmt.Errorf("total days must be a positive integer")
	ErrLedgerCorrupt       = fmt.Errorf("ledger consistency check failed")

	// Agent loop errors.
	ErrToolNotFound  = fmt.Errorf("tool not found")
	ErrMaxIterations = fmt.Errorf("agent reached max iterations")

	// Dispatch / A2A transport errors.
	ErrAgentUnreachable  = fmt.Errorf("remote agent unreachable")
	ErrMalformedResponse = fmt.Errorf("malformed agent response")

	// Resilience errors, used by the HTTP error mapper.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
)

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
