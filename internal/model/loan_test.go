package model

import (
	"testing"
	"time"
)

func TestLoanIsOverdue(t *testing.T) {
	now := time.Now()

	active := &Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(-24 * time.Hour)}
	if !active.IsOverdue(now) {
		t.Error("expected active loan past its expected return date to be overdue")
	}

	onTime := &Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(24 * time.Hour)}
	if onTime.IsOverdue(now) {
		t.Error("expected loan before its expected return date not to be overdue")
	}

	// A loan is not overdue at the exact expected return instant.
	boundary := &Loan{Status: LoanStatusActive, ExpectedReturnDate: now}
	if boundary.IsOverdue(now) {
		t.Error("expected loan at the boundary not to be overdue")
	}

	// Returned loans are never overdue, even when returned late.
	returned := &Loan{Status: LoanStatusReturned, ExpectedReturnDate: now.Add(-72 * time.Hour)}
	if returned.IsOverdue(now) {
		t.Error("expected returned loan not to be overdue")
	}
}

func TestLoanDaysOverdue(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		loan     Loan
		expected int
	}{
		{"not overdue", Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(time.Hour)}, 0},
		{"under a day", Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(-6 * time.Hour)}, 0},
		{"one day", Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(-25 * time.Hour)}, 1},
		{"two and a half days", Loan{Status: LoanStatusActive, ExpectedReturnDate: now.Add(-60 * time.Hour)}, 2},
		{"returned late", Loan{Status: LoanStatusReturned, ExpectedReturnDate: now.Add(-60 * time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loan.DaysOverdue(now); got != tt.expected {
				t.Errorf("expected %d days overdue, got %d", tt.expected, got)
			}
		})
	}
}
