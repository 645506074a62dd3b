package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/obrastock/obrastock/internal/model"
)

// LowStockThreshold is the available quantity at or below which a tool
// counts as low stock on the dashboard.
const LowStockThreshold = 2

// DashboardStats is the fleet-wide summary shown on the dashboard.
type DashboardStats struct {
	TotalTools     int `json:"total_tools"`
	LentTools      int `json:"lent_tools"`
	LowStockCount  int `json:"low_stock_count"`
	OverdueReturns int `json:"overdue_returns"`
}

// ListTools returns the tools in scope for the worksite, each decorated
// with its active and overdue loan counts. The counts are derived from
// current state on every call, never cached.
func ListTools(ctx context.Context, db *sql.DB, worksite string) ([]model.ToolWithLoanInfo, error) {
	tools, err := queryTools(ctx, db, worksite)
	if err != nil {
		return nil, err
	}
	loans, err := queryLoans(ctx, db, worksite)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	decorated := make([]model.ToolWithLoanInfo, 0, len(tools))
	for _, tool := range tools {
		decorated = append(decorated, decorateTool(tool, loans, now))
	}
	return decorated, nil
}

// decorateTool attaches active and overdue loan counts to a tool.
func decorateTool(tool model.Tool, loans []model.Loan, now time.Time) model.ToolWithLoanInfo {
	info := model.ToolWithLoanInfo{Tool: tool}
	for i := range loans {
		if loans[i].ToolID != tool.ID || loans[i].Status != model.LoanStatusActive {
			continue
		}
		info.CurrentLoans++
		if loans[i].IsOverdue(now) {
			info.OverdueLoans++
		}
	}
	return info
}

// ListLoans returns the loans in scope for the worksite, each decorated
// with its tool's name and code and its overdue state.
func ListLoans(ctx context.Context, db *sql.DB, worksite string) ([]model.LoanWithToolInfo, error) {
	loans, err := queryLoans(ctx, db, worksite)
	if err != nil {
		return nil, err
	}
	tools, err := queryToolsByID(ctx, db)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	decorated := make([]model.LoanWithToolInfo, 0, len(loans))
	for _, loan := range loans {
		decorated = append(decorated, decorateLoan(loan, tools[loan.ToolID], now))
	}
	return decorated, nil
}

// decorateLoan attaches denormalized tool fields and overdue state to a loan.
// tool may be nil when the tool has been deleted.
func decorateLoan(loan model.Loan, tool *model.Tool, now time.Time) model.LoanWithToolInfo {
	info := model.LoanWithToolInfo{
		Loan:        loan,
		Overdue:     loan.IsOverdue(now),
		DaysOverdue: loan.DaysOverdue(now),
	}
	if tool != nil {
		info.ToolName = tool.Name
		info.ToolCode = tool.Code
	}
	return info
}

// ListActiveLoans returns the in-scope loans with status "active".
func ListActiveLoans(ctx context.Context, db *sql.DB, worksite string) ([]model.LoanWithToolInfo, error) {
	loans, err := ListLoans(ctx, db, worksite)
	if err != nil {
		return nil, err
	}
	active := loans[:0]
	for _, loan := range loans {
		if loan.Status == model.LoanStatusActive {
			active = append(active, loan)
		}
	}
	return active, nil
}

// ListOverdueLoans returns the in-scope loans that are currently overdue.
func ListOverdueLoans(ctx context.Context, db *sql.DB, worksite string) ([]model.LoanWithToolInfo, error) {
	loans, err := ListLoans(ctx, db, worksite)
	if err != nil {
		return nil, err
	}
	overdue := loans[:0]
	for _, loan := range loans {
		if loan.Overdue {
			overdue = append(overdue, loan)
		}
	}
	return overdue, nil
}

// GetDashboardStats aggregates fleet-wide statistics over the tools and
// loans in scope for the worksite. Worksite scoping is applied identically
// to tools and loans: a loan follows its tool, and tools with no origin
// worksite (shared pool) are counted everywhere.
func GetDashboardStats(ctx context.Context, db *sql.DB, worksite string) (*DashboardStats, error) {
	tools, err := queryTools(ctx, db, worksite)
	if err != nil {
		return nil, err
	}
	loans, err := queryLoans(ctx, db, worksite)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stats := &DashboardStats{}
	for _, tool := range tools {
		stats.TotalTools += tool.TotalQuantity
		if tool.AvailableQuantity <= LowStockThreshold {
			stats.LowStockCount++
		}
	}
	for i := range loans {
		if loans[i].Status == model.LoanStatusActive {
			stats.LentTools += loans[i].Quantity
		}
		if loans[i].IsOverdue(now) {
			stats.OverdueReturns++
		}
	}
	return stats, nil
}

// queryToolsByID returns all tools, deleted included, keyed by ID for
// decorating loans.
func queryToolsByID(ctx context.Context, db *sql.DB) (map[int64]*model.Tool, error) {
	rows, err := db.QueryContext(ctx, toolSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tools := make(map[int64]*model.Tool)
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		tools[tool.ID] = tool
	}
	return tools, rows.Err()
}
