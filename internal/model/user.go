package model

import (
	"fmt"
	"time"
)

// User represents an authentication user.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Worksite     *string    `json:"worksite,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// Permissions.
const (
	PermRead            = "read"
	PermWrite           = "write"
	PermDelete          = "delete"
	PermManageUsers     = "manage_users"
	PermManageTransfers = "manage_transfers"
)

// RolePermissions is the static role to permission-set mapping.
var RolePermissions = map[string][]string{
	RoleAdmin:    {PermRead, PermWrite, PermDelete, PermManageUsers, PermManageTransfers},
	RoleManager:  {PermRead, PermWrite, PermManageTransfers},
	RoleOperator: {PermRead, PermWrite},
}

// HasPermission checks if a role grants the given permission.
func HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidRole reports whether the role name is known.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// ValidatePassword checks that a password meets the minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
