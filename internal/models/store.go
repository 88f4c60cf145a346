package models

import (
	"github.com/google/uuid"
)

// Store statuses.
const (
	StoreStatusActive   = "active"
	StoreStatusInactive = "inactive"
)

// Locker statuses.
const (
	LockerStatusAvailable   = "available"
	LockerStatusOccupied    = "occupied"
	LockerStatusMaintenance = "maintenance"
)

// Store is a retail location hosting lockers.
type Store struct {
	BaseModel
	Name    string `json:"name"`
	Address string `json:"address"`
	Status  string `gorm:"default:active" json:"status"`
}

// Locker is a single rentable locker at a store.
// Invariant: UserID is set if and only if Status is occupied.
type Locker struct {
	BaseModel
	StoreID uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_store_number" json:"store_id"`
	Number  string     `gorm:"uniqueIndex:idx_store_number" json:"number"`
	Status  string     `gorm:"default:available" json:"status"`
	UserID  *uuid.UUID `gorm:"type:uuid" json:"user_id"`
}
