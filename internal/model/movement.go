package model

import "time"

// Movement is one append-only audit record of a quantity-affecting event.
// Quantity is signed: negative for stock leaving (loan, exit, transfer out),
// positive for stock arriving (entry, return). Movements are never edited;
// a correction is a new compensating movement.
type Movement struct {
	ID             int64     `json:"id"`
	ToolID         int64     `json:"tool_id"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	Description    string    `json:"description,omitempty"`
	UserID         *int64    `json:"user_id,omitempty"`
	LoanID         *int64    `json:"loan_id,omitempty"`
	OriginWorksite *string   `json:"origin_worksite,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Movement types.
const (
	MovementEntry    = "entry"
	MovementExit     = "exit"
	MovementLoan     = "loan"
	MovementReturn   = "return"
	MovementTransfer = "transfer"
)
