package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/obrastock/obrastock/internal/model"
)

// CreateUserParams holds the fields for creating a user account.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Worksite     *string
}

// CreateUser creates a new user. Returns ErrConflict if the username or
// email is already taken by a non-deleted user.
func CreateUser(ctx context.Context, db *sql.DB, p CreateUserParams) (*model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ? AND deleted_at IS NULL`, p.Username,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("username %q: %w", p.Username, ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ? AND deleted_at IS NULL`, p.Email,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("email %q: %w", p.Email, ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, worksite) VALUES (?, ?, ?, ?, ?)`,
		p.Username, p.Email, p.PasswordHash, p.Role, p.Worksite,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user creation: %w", err)
	}

	return GetUser(ctx, db, id)
}

const userSelect = `
	SELECT id, username, email, password_hash, role, worksite, is_active,
	       last_login, created_at, updated_at, deleted_at
	FROM users`

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// GetUserByUsername returns a user by username (soft-deleted included, so
// the login path can distinguish gone accounts from unknown ones).
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, userSelect+` WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return user, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, userSelect+` WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's role, worksite, and active flag.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role string, worksite *string, isActive bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = ?, worksite = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		role, worksite, isActive, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// TouchLastLogin records a successful login.
func TouchLastLogin(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("recording last login: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Worksite,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
