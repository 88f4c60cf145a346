package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin roles.
const (
	RoleSuperAdmin = "super_admin"
	RoleStoreAdmin = "store_admin"
	RoleOperator   = "operator"
)

// Admin represents a staff account with password authentication.
// StoreID is required for store_admin, optional otherwise.
type Admin struct {
	BaseModel
	Phone          string     `gorm:"uniqueIndex" json:"phone"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	StoreID        *uuid.UUID `gorm:"type:uuid" json:"store_id"`
	PasswordHash   string     `json:"-"`
	Status         string     `gorm:"default:active" json:"status"`
	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
	LastLoginAt    *time.Time `json:"last_login_at"`
}

// Permissions returns the fixed permission set for the admin's role,
// resolved once at login and embedded in the session claims.
func (a *Admin) Permissions() []string {
	switch a.Role {
	case RoleSuperAdmin:
		return []string{
			"applications:read", "applications:decide",
			"lockers:read", "lockers:manage",
			"stores:read", "stores:manage",
			"admins:manage",
		}
	case RoleStoreAdmin:
		return []string{
			"applications:read", "applications:decide",
			"lockers:read", "lockers:manage",
			"stores:read",
		}
	case RoleOperator:
		return []string{"applications:read", "lockers:read", "stores:read"}
	default:
		return nil
	}
}
