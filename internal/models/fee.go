package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fee types
const (
	FeeTypeTrading    = "trading"
	FeeTypeWithdrawal = "withdrawal"
	FeeTypeTransfer   = "transfer"
)

// FeeRecord is the append-only record of a fee charged to a user.
// TransactionID is nullable: when transaction recording fails the fee is
// still recorded standalone against the user.
// FeeTransferred distinguishes "charged in the ledger" from "captured
// on-chain" so reconciliation can detect drift after a failed fee transfer.
type FeeRecord struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	TransactionID  *uint           `gorm:"index" json:"transaction_id,omitempty"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	FeeAmount      decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"fee_amount"`
	FeeType        string          `gorm:"size:20;not null;index" json:"fee_type"` // trading, withdrawal, transfer
	Asset          string          `gorm:"size:64;not null" json:"asset"`
	FeeTransferred bool            `gorm:"default:false;index" json:"fee_transferred"`
	FeeTransferRef string          `gorm:"size:128" json:"fee_transfer_ref,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

func (FeeRecord) TableName() string {
	return "fee_records"
}
