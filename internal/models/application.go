package models

import (
	"time"

	"github.com/google/uuid"
)

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Application is a user's request to be assigned a locker at a store.
// It transitions exactly once from pending to approved or rejected and
// is terminal thereafter. At most one pending application exists per user.
type Application struct {
	BaseModel
	UserID          uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	StoreID         uuid.UUID  `gorm:"type:uuid;index" json:"store_id"`
	RequestedNumber string     `json:"requested_number,omitempty"`
	Status          string     `gorm:"default:pending;index" json:"status"`
	LockerID        *uuid.UUID `gorm:"type:uuid" json:"locker_id"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectReason    string     `json:"reject_reason,omitempty"`
}

// IsPending reports whether the application is still awaiting review.
func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
