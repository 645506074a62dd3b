package model

import "time"

// Loan represents a quantity of a tool lent out to a borrower. Quantity is
// immutable after creation; a loan is mutated exactly once, by the return
// operation.
type Loan struct {
	ID                 int64      `json:"id"`
	ToolID             int64      `json:"tool_id"`
	BorrowerName       string     `json:"borrower_name"`
	BorrowerTeam       string     `json:"borrower_team,omitempty"`
	BorrowerContact    string     `json:"borrower_contact,omitempty"`
	Quantity           int        `json:"quantity"`
	LoanDate           time.Time  `json:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Loan statuses.
const (
	LoanStatusActive   = "active"
	LoanStatusReturned = "returned"
)

// IsOverdue reports whether the loan is overdue at the given instant.
// A returned loan is never overdue, even if it came back late.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.ExpectedReturnDate)
}

// DaysOverdue returns the number of whole days the loan is overdue at the
// given instant, or 0 if it is not overdue.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(l.ExpectedReturnDate) / (24 * time.Hour))
}

// LoanWithToolInfo is a Loan decorated with tool fields and overdue state
// for listings.
type LoanWithToolInfo struct {
	Loan
	ToolName    string `json:"tool_name,omitempty"`
	ToolCode    string `json:"tool_code,omitempty"`
	Overdue     bool   `json:"is_overdue"`
	DaysOverdue int    `json:"days_overdue"`
}
