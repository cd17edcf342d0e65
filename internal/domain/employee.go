package domain

// Employee is one row in the time-off ledger.
type Employee struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AllowedDays  int    `json:"allowed_days"`
	ConsumedDays int    `json:"consumed_days"`
}

// Remaining returns the employee's available time-off balance.
func (e Employee) Remaining() int {
	return e.AllowedDays - e.ConsumedDays
}

// TimeoffRequest is one granted request in the history table.
type TimeoffRequest struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	StartDay   string `json:"start_day"` // YYYY-MM-DD
	TotalDays  int    `json:"total_days"`
}
