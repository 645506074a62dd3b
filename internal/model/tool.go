package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tool represents a tracked tool type (quantity-based, not per-unit serials).
// AvailableQuantity is a live counter kept in lockstep with the movement
// ledger; it is only ever mutated by the loan lifecycle and transfer paths,
// and always satisfies 0 <= available <= total.
type Tool struct {
	ID                int64               `json:"id"`
	Name              string              `json:"name"`
	Code              string              `json:"code"`
	Category          string              `json:"category"`
	TotalQuantity     int                 `json:"total_quantity"`
	AvailableQuantity int                 `json:"available_quantity"`
	UnitPrice         decimal.NullDecimal `json:"unit_price,omitempty"`
	Supplier          string              `json:"supplier,omitempty"`
	PurchaseDate      *time.Time          `json:"purchase_date,omitempty"`
	EntryType         string              `json:"entry_type"`
	OriginWorksite    *string             `json:"origin_worksite,omitempty"`
	ImageMime         string              `json:"image_mime,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         *time.Time          `json:"deleted_at,omitempty"`
}

// Entry types.
const (
	EntryTypePurchase = "purchase"
	EntryTypeTransfer = "transfer"
)

// VisibleAt reports whether the tool is in scope for the given worksite.
// A tool with no origin worksite belongs to the shared pool and is visible
// everywhere; an empty worksite means no scoping at all.
func (t *Tool) VisibleAt(worksite string) bool {
	if worksite == "" || t.OriginWorksite == nil {
		return true
	}
	return *t.OriginWorksite == worksite
}

// ToolWithLoanInfo is a Tool decorated with loan counts for listings.
// The counts are recomputed from current state on every read.
type ToolWithLoanInfo struct {
	Tool
	CurrentLoans int `json:"current_loans"`
	OverdueLoans int `json:"overdue_loans"`
}
