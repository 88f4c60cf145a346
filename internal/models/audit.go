package models

import (
	"time"

	"github.com/google/uuid"
)

// Operation actions.
const (
	ActionApply    = "apply"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionStore    = "store"
	ActionRetrieve = "retrieve"
	ActionLogin    = "login"
)

// Reminder types.
const (
	ReminderTypeSms            = "sms"
	ReminderTypeNotification   = "notification"
	ReminderTypeReturnKey      = "return_key"
	ReminderTypeApprovalNeeded = "approval_needed"
)

// OperationRecord is an immutable audit entry for a locker-related action.
// Records are append-only and outlive the entities they reference, so the
// locker reference is nullable by design.
type OperationRecord struct {
	BaseModel
	UserID   uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	LockerID *uuid.UUID `gorm:"type:uuid;index" json:"locker_id"`
	StoreID  *uuid.UUID `gorm:"type:uuid;index" json:"store_id"`
	Action   string     `gorm:"index" json:"action"`
	Note     string     `json:"note,omitempty"`
}

// Reminder records a notification send so repeat sends can be
// deduplicated within a rolling window.
type Reminder struct {
	BaseModel
	UserID   uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	LockerID *uuid.UUID `gorm:"type:uuid" json:"locker_id"`
	Type     string     `gorm:"index" json:"type"`
	SentAt   time.Time  `json:"sent_at"`
	Success  bool       `json:"success"`
}

// Notification is an in-app inbox entry for a user.
type Notification struct {
	BaseModel
	UserID  uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Type    string     `json:"type"`
	ReadAt  *time.Time `json:"read_at"`
}
