package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/obrastock/obrastock/internal/model"
)

// movementParams holds the fields for one ledger row. The ledger trusts its
// caller for the sign convention: negative quantity for stock leaving,
// positive for stock arriving.
type movementParams struct {
	ToolID         int64
	Type           string
	Quantity       int
	Description    string
	UserID         *int64
	LoanID         *int64
	OriginWorksite *string
}

// execer covers *sql.DB and *sql.Tx so the lifecycle operations can append
// to the ledger inside their own transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// recordMovementTx appends one ledger row. Ledger rows are never updated or
// deleted afterwards; a correction is a new compensating row.
func recordMovementTx(ctx context.Context, ex execer, p movementParams) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO inventory_movements (tool_id, type, quantity, description, user_id, loan_id, origin_worksite)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ToolID, p.Type, p.Quantity, nullString(p.Description), p.UserID, p.LoanID, p.OriginWorksite,
	)
	if err != nil {
		return fmt.Errorf("recording movement: %w", err)
	}
	return nil
}

// AdjustStock changes a tool's total and available quantity by delta and
// appends the matching "entry" or "exit" ledger row, in one transaction.
// Negative deltas record lost, damaged, or retired stock and are limited to
// the available quantity, so lent-out stock can never be written off while a
// loan still references it.
func AdjustStock(ctx context.Context, db *sql.DB, toolID int64, delta int, description string, userID *int64, originWorksite *string) (*model.Tool, error) {
	if delta == 0 {
		return nil, fmt.Errorf("stock adjustment must not be zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var available int
	var name string
	err = tx.QueryRowContext(ctx,
		`SELECT available_quantity, name FROM tools WHERE id = ? AND deleted_at IS NULL`,
		toolID,
	).Scan(&available, &name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tool %d: %w", toolID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking tool: %w", err)
	}

	if delta < 0 && available < -delta {
		return nil, fmt.Errorf("tool %q has %d available, cannot remove %d: %w",
			name, available, -delta, ErrInsufficientStock)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tools SET total_quantity = total_quantity + ?,
		        available_quantity = available_quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, delta, toolID,
	)
	if err != nil {
		return nil, fmt.Errorf("adjusting stock: %w", err)
	}

	movementType := model.MovementEntry
	if delta < 0 {
		movementType = model.MovementExit
	}
	if err := recordMovementTx(ctx, tx, movementParams{
		ToolID:         toolID,
		Type:           movementType,
		Quantity:       delta,
		Description:    description,
		UserID:         userID,
		OriginWorksite: originWorksite,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock adjustment: %w", err)
	}

	return GetTool(ctx, db, toolID)
}

// ListMovements returns movements in ledger (insertion) order, oldest first.
// A non-empty worksite filters to rows stamped with that worksite or with
// none (shared pool).
func ListMovements(ctx context.Context, db *sql.DB, worksite string) ([]model.Movement, error) {
	query := `SELECT id, tool_id, type, quantity, description, user_id, loan_id, origin_worksite, created_at
	          FROM inventory_movements`
	var args []any
	if worksite != "" {
		query += ` WHERE origin_worksite = ? OR origin_worksite IS NULL`
		args = append(args, worksite)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// ListToolMovements returns the ledger rows for one tool, oldest first.
func ListToolMovements(ctx context.Context, db *sql.DB, toolID int64) ([]model.Movement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, tool_id, type, quantity, description, user_id, loan_id, origin_worksite, created_at
		 FROM inventory_movements WHERE tool_id = ? ORDER BY id`, toolID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tool movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

func scanMovements(rows *sql.Rows) ([]model.Movement, error) {
	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		var description sql.NullString
		if err := rows.Scan(&m.ID, &m.ToolID, &m.Type, &m.Quantity, &description,
			&m.UserID, &m.LoanID, &m.OriginWorksite, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Description = description.String
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
