package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'operator' CHECK (role IN ('admin', 'manager', 'operator')),
    worksite      TEXT,
    is_active     INTEGER NOT NULL DEFAULT 1,
    last_login    DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS tools (
    id                 INTEGER PRIMARY KEY,
    name               TEXT NOT NULL,
    code               TEXT NOT NULL,
    category           TEXT NOT NULL,
    total_quantity     INTEGER NOT NULL DEFAULT 0 CHECK (total_quantity >= 0),
    available_quantity INTEGER NOT NULL DEFAULT 0
        CHECK (available_quantity >= 0 AND available_quantity <= total_quantity),
    unit_price         TEXT,
    supplier           TEXT,
    purchase_date      DATETIME,
    entry_type         TEXT NOT NULL DEFAULT 'purchase' CHECK (entry_type IN ('purchase', 'transfer')),
    origin_worksite    TEXT,
    image              BLOB,
    image_mime         TEXT,
    notes              TEXT,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at         DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tools_code_active
    ON tools(code) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS loans (
    id                   INTEGER PRIMARY KEY,
    tool_id              INTEGER NOT NULL REFERENCES tools(id),
    borrower_name        TEXT NOT NULL,
    borrower_team        TEXT,
    borrower_contact     TEXT,
    quantity             INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
    loan_date            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expected_return_date DATETIME NOT NULL,
    actual_return_date   DATETIME,
    status               TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'returned')),
    notes                TEXT,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_tool ON loans(tool_id);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS inventory_movements (
    id              INTEGER PRIMARY KEY,
    tool_id         INTEGER NOT NULL REFERENCES tools(id),
    type            TEXT NOT NULL CHECK (type IN ('entry', 'exit', 'loan', 'return', 'transfer')),
    quantity        INTEGER NOT NULL,
    description     TEXT,
    user_id         INTEGER REFERENCES users(id),
    loan_id         INTEGER REFERENCES loans(id),
    origin_worksite TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_movements_tool ON inventory_movements(tool_id);
CREATE INDEX IF NOT EXISTS idx_movements_loan ON inventory_movements(loan_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
