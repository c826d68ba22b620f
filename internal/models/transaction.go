package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses
const (
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

// Transaction represents a recorded fee-bearing swap or transfer
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	WalletID    uint            `gorm:"not null;index" json:"wallet_id"`
	InputAsset  string          `gorm:"size:64;not null" json:"input_asset"`
	OutputAsset string          `gorm:"size:64;not null" json:"output_asset"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"total_amount"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"net_amount"`
	FeeAmount   decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"fee_amount"`
	Reference   string          `gorm:"size:128;index" json:"reference"` // execution signature
	Status      string          `gorm:"size:20;not null;index" json:"status"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
