package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;not null" json:"wallet_address"`
	ReferredBy    *uint     `gorm:"index" json:"referred_by,omitempty"`
	Referrer      *User     `gorm:"foreignKey:ReferredBy" json:"referrer,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
