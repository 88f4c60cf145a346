package models

import (
	"time"

	"github.com/google/uuid"
)

// OTP purposes.
const (
	OtpPurposeLogin    = "login"
	OtpPurposeRegister = "register"
)

// OtpCode keeps track of one-time codes sent to phones. Only a salted
// hash of the code is stored. Name and StoreID carry pending-registration
// metadata until the code is verified.
type OtpCode struct {
	BaseModel
	Phone     string     `gorm:"index" json:"phone"`
	CodeHash  string     `json:"-"`
	Purpose   string     `json:"purpose"`
	ExpiresAt time.Time  `json:"expires_at"`
	Attempts  int        `gorm:"default:0" json:"attempts"`
	Used      bool       `gorm:"default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at"`
	Name      string     `json:"name,omitempty"`
	StoreID   *uuid.UUID `gorm:"type:uuid" json:"store_id,omitempty"`
}

// Expired reports whether the code is past its expiry.
func (o *OtpCode) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}
