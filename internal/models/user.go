package models

import (
	"github.com/google/uuid"
)

// User statuses.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
)

// User represents a customer account identified by phone number.
// A user holds at most one locker at a time.
type User struct {
	BaseModel
	Phone    string     `gorm:"uniqueIndex" json:"phone"`
	Name     string     `json:"name"`
	Status   string     `gorm:"default:active" json:"status"`
	StoreID  *uuid.UUID `gorm:"type:uuid" json:"store_id"`
	LockerID *uuid.UUID `gorm:"type:uuid" json:"locker_id"`
}

// HasLocker reports whether the user currently holds a locker.
func (u *User) HasLocker() bool {
	return u.LockerID != nil
}
