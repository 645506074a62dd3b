package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obrastock/obrastock/internal/model"
)

// CreateLoanParams holds the fields for lending out a tool.
type CreateLoanParams struct {
	ToolID             int64
	BorrowerName       string
	BorrowerTeam       string
	BorrowerContact    string
	Quantity           int
	LoanDate           time.Time
	ExpectedReturnDate time.Time
	Notes              string

	// Stamped by the API layer from the authenticated principal.
	UserID   *int64
	Worksite *string
}

// CreateLoan lends out a quantity of a tool. The stock check, the loan
// insert, the available-quantity decrement, and the "loan" ledger append all
// happen in one transaction so the counter and the ledger can never diverge.
// Returns ErrNotFound if the tool does not exist and ErrInsufficientStock if
// the requested quantity exceeds the available quantity.
func CreateLoan(ctx context.Context, db *sql.DB, p CreateLoanParams) (*model.Loan, error) {
	if p.Quantity < 1 {
		return nil, fmt.Errorf("loan quantity must be at least 1")
	}
	if p.BorrowerName == "" {
		return nil, fmt.Errorf("borrower name required")
	}
	if p.ExpectedReturnDate.IsZero() {
		return nil, fmt.Errorf("expected return date required")
	}
	if p.LoanDate.IsZero() {
		p.LoanDate = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var available int
	var toolName string
	err = tx.QueryRowContext(ctx,
		`SELECT available_quantity, name FROM tools WHERE id = ? AND deleted_at IS NULL`,
		p.ToolID,
	).Scan(&available, &toolName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tool %d: %w", p.ToolID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking tool: %w", err)
	}

	if available < p.Quantity {
		return nil, fmt.Errorf("tool %q has %d available, requested %d: %w",
			toolName, available, p.Quantity, ErrInsufficientStock)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO loans (tool_id, borrower_name, borrower_team, borrower_contact,
		                    quantity, loan_date, expected_return_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ToolID, p.BorrowerName, nullString(p.BorrowerTeam), nullString(p.BorrowerContact),
		p.Quantity, p.LoanDate, p.ExpectedReturnDate, nullString(p.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	loanID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting loan id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tools SET available_quantity = available_quantity - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Quantity, p.ToolID,
	)
	if err != nil {
		return nil, fmt.Errorf("decrementing available quantity: %w", err)
	}

	if err := recordMovementTx(ctx, tx, movementParams{
		ToolID:         p.ToolID,
		Type:           model.MovementLoan,
		Quantity:       -p.Quantity,
		Description:    fmt.Sprintf("Loan to %s", p.BorrowerName),
		UserID:         p.UserID,
		LoanID:         &loanID,
		OriginWorksite: p.Worksite,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing loan: %w", err)
	}

	return GetLoan(ctx, db, loanID)
}

// ReturnLoan closes out a loan: status becomes "returned", the actual return
// date is set, the tool's available quantity is restored by the loan's
// original quantity (never recomputed), and a "return" ledger row is
// appended, all in one transaction. Returning a loan that is already
// returned fails with ErrInvalidState and leaves the counter and ledger
// untouched.
func ReturnLoan(ctx context.Context, db *sql.DB, id int64, userID *int64) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var toolID int64
	var quantity int
	var status, borrowerName string
	err = tx.QueryRowContext(ctx,
		`SELECT tool_id, quantity, status, borrower_name FROM loans WHERE id = ?`, id,
	).Scan(&toolID, &quantity, &status, &borrowerName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking loan: %w", err)
	}

	if status == model.LoanStatusReturned {
		return nil, fmt.Errorf("loan %d already returned: %w", id, ErrInvalidState)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = ?, actual_return_date = CURRENT_TIMESTAMP,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		model.LoanStatusReturned, id,
	)
	if err != nil {
		return nil, fmt.Errorf("returning loan: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tools SET available_quantity = available_quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, toolID,
	)
	if err != nil {
		return nil, fmt.Errorf("restoring available quantity: %w", err)
	}

	if err := recordMovementTx(ctx, tx, movementParams{
		ToolID:      toolID,
		Type:        model.MovementReturn,
		Quantity:    quantity,
		Description: fmt.Sprintf("Return from %s", borrowerName),
		UserID:      userID,
		LoanID:      &id,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	return GetLoan(ctx, db, id)
}

// GetLoan returns a loan by ID, or nil if it does not exist.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	loan, err := scanLoan(db.QueryRowContext(ctx, loanSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return loan, nil
}

const loanSelect = `
	SELECT id, tool_id, borrower_name, borrower_team, borrower_contact,
	       quantity, loan_date, expected_return_date, actual_return_date,
	       status, notes, created_at, updated_at
	FROM loans`

// queryLoans returns loans in scope for the given worksite. Scope follows
// the loan's tool: in scope when the tool's origin worksite matches or is
// NULL (shared pool). An empty worksite returns everything.
func queryLoans(ctx context.Context, db *sql.DB, worksite string) ([]model.Loan, error) {
	query := loanSelect + ` ORDER BY loan_date DESC, id DESC`
	var args []any
	if worksite != "" {
		query = `
	SELECT l.id, l.tool_id, l.borrower_name, l.borrower_team, l.borrower_contact,
	       l.quantity, l.loan_date, l.expected_return_date, l.actual_return_date,
	       l.status, l.notes, l.created_at, l.updated_at
	FROM loans l
	JOIN tools t ON t.id = l.tool_id
	WHERE t.origin_worksite = ? OR t.origin_worksite IS NULL
	ORDER BY l.loan_date DESC, l.id DESC`
		args = append(args, worksite)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	loan := &model.Loan{}
	var team, contact, notes sql.NullString
	err := row.Scan(&loan.ID, &loan.ToolID, &loan.BorrowerName, &team, &contact,
		&loan.Quantity, &loan.LoanDate, &loan.ExpectedReturnDate, &loan.ActualReturnDate,
		&loan.Status, &notes, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	loan.BorrowerTeam = team.String
	loan.BorrowerContact = contact.String
	loan.Notes = notes.String
	return loan, nil
}
