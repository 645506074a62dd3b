package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obrastock/obrastock/internal/model"
)

// CreateToolParams holds the fields for registering a tool entry.
type CreateToolParams struct {
	Name           string
	Code           string
	Category       string
	TotalQuantity  int
	UnitPrice      decimal.NullDecimal
	Supplier       string
	PurchaseDate   *time.Time
	EntryType      string
	OriginWorksite *string
	Notes          string
	UserID         *int64
}

// CreateTool registers a new tool and appends the initial "entry" (or
// "transfer") movement for its full quantity, in one transaction. The
// available quantity starts equal to the total quantity. Returns ErrConflict
// if the code is already in use by a non-deleted tool.
func CreateTool(ctx context.Context, db *sql.DB, p CreateToolParams) (*model.Tool, error) {
	if p.TotalQuantity < 0 {
		return nil, fmt.Errorf("total quantity must not be negative")
	}
	if p.EntryType == "" {
		p.EntryType = model.EntryTypePurchase
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tools WHERE code = ? AND deleted_at IS NULL`, p.Code,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("tool code %q: %w", p.Code, ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking tool code: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO tools (name, code, category, total_quantity, available_quantity,
		                    unit_price, supplier, purchase_date, entry_type, origin_worksite, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Code, p.Category, p.TotalQuantity, p.TotalQuantity,
		p.UnitPrice, nullString(p.Supplier), p.PurchaseDate, p.EntryType, p.OriginWorksite, nullString(p.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tool: %w", err)
	}

	toolID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting tool id: %w", err)
	}

	movementType := model.MovementEntry
	description := fmt.Sprintf("Initial entry - %s", p.Name)
	if p.EntryType == model.EntryTypeTransfer {
		movementType = model.MovementTransfer
		origin := "unknown worksite"
		if p.OriginWorksite != nil {
			origin = *p.OriginWorksite
		}
		description = fmt.Sprintf("Transfer from %s - %s", origin, p.Name)
	}

	if err := recordMovementTx(ctx, tx, movementParams{
		ToolID:         toolID,
		Type:           movementType,
		Quantity:       p.TotalQuantity,
		Description:    description,
		UserID:         p.UserID,
		OriginWorksite: p.OriginWorksite,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tool creation: %w", err)
	}

	return GetTool(ctx, db, toolID)
}

// GetTool returns a tool by ID, including soft-deleted ones so that loan and
// movement history stays resolvable.
func GetTool(ctx context.Context, db *sql.DB, id int64) (*model.Tool, error) {
	return scanToolRow(db.QueryRowContext(ctx, toolSelect+` WHERE id = ?`, id))
}

// GetToolByCode returns a non-deleted tool by its unique code.
func GetToolByCode(ctx context.Context, db *sql.DB, code string) (*model.Tool, error) {
	return scanToolRow(db.QueryRowContext(ctx,
		toolSelect+` WHERE code = ? AND deleted_at IS NULL`, code))
}

// UpdateToolParams holds the mutable tool metadata. Quantities are absent on
// purpose: available_quantity belongs to the loan lifecycle alone.
type UpdateToolParams struct {
	Name         string
	Category     string
	UnitPrice    decimal.NullDecimal
	Supplier     string
	PurchaseDate *time.Time
	Notes        string
}

// UpdateTool updates a tool's metadata. Returns ErrNotFound if the tool does
// not exist or is deleted.
func UpdateTool(ctx context.Context, db *sql.DB, id int64, p UpdateToolParams) (*model.Tool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE tools SET name = ?, category = ?, unit_price = ?, supplier = ?,
		        purchase_date = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.Category, p.UnitPrice, nullString(p.Supplier), p.PurchaseDate, nullString(p.Notes), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating tool: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("tool %d: %w", id, ErrNotFound)
	}
	return GetTool(ctx, db, id)
}

// DeleteTool soft-deletes a tool. The delete is refused while the tool has
// active loans so that no loan is left pointing at a missing tool.
func DeleteTool(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE tool_id = ? AND status = ?`,
		id, model.LoanStatusActive,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("counting active loans: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("tool has %d active loans: %w", active, ErrInvalidState)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE tools SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting tool: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tool %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tool deletion: %w", err)
	}
	return nil
}

// SetToolImage sets a tool's photo.
func SetToolImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE tools SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting tool image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tool %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetToolImage returns a tool's photo data and MIME type. Data is nil when
// no photo has been uploaded.
func GetToolImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM tools WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("tool %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting tool image: %w", err)
	}
	return image, mime.String, nil
}

const toolSelect = `
	SELECT id, name, code, category, total_quantity, available_quantity,
	       unit_price, supplier, purchase_date, entry_type, origin_worksite,
	       image_mime, notes, created_at, updated_at, deleted_at
	FROM tools`

// queryTools returns non-deleted tools in scope for the given worksite.
// An empty worksite returns everything; otherwise a tool is in scope when
// its origin worksite matches or is NULL (the shared pool).
func queryTools(ctx context.Context, db *sql.DB, worksite string) ([]model.Tool, error) {
	query := toolSelect + ` WHERE deleted_at IS NULL`
	var args []any
	if worksite != "" {
		query += ` AND (origin_worksite = ? OR origin_worksite IS NULL)`
		args = append(args, worksite)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	defer rows.Close()

	var tools []model.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tool: %w", err)
		}
		tools = append(tools, *tool)
	}
	return tools, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTool(row rowScanner) (*model.Tool, error) {
	tool := &model.Tool{}
	var supplier, imageMime, notes sql.NullString
	err := row.Scan(&tool.ID, &tool.Name, &tool.Code, &tool.Category,
		&tool.TotalQuantity, &tool.AvailableQuantity,
		&tool.UnitPrice, &supplier, &tool.PurchaseDate, &tool.EntryType, &tool.OriginWorksite,
		&imageMime, &notes, &tool.CreatedAt, &tool.UpdatedAt, &tool.DeletedAt)
	if err != nil {
		return nil, err
	}
	tool.Supplier = supplier.String
	tool.ImageMime = imageMime.String
	tool.Notes = notes.String
	return tool, nil
}

func scanToolRow(row *sql.Row) (*model.Tool, error) {
	tool, err := scanTool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tool: %w", err)
	}
	return tool, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
