package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reward types
const (
	RewardTypeTier     = "tier"
	RewardTypeCashback = "cashback"
)

// Reward statuses
const (
	RewardStatusPending = "pending"
	RewardStatusQueued  = "queued"
	RewardStatusPaid    = "paid"
	RewardStatusFailed  = "failed"
)

// RewardRecord is the append-only reward ledger row. RewardAmount is computed
// once from the percentage in effect at creation time and never recalculated.
// The (transaction_id, reward_type, layer) unique index makes distribution
// replays idempotent; cashback rows use layer 0.
type RewardRecord struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReferralEdgeID *uint           `gorm:"index" json:"referral_edge_id,omitempty"` // null for cashback
	ReferralEdge   *ReferralEdge   `gorm:"foreignKey:ReferralEdgeID" json:"referral_edge,omitempty"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RewardType     string          `gorm:"size:20;not null;uniqueIndex:idx_reward_records_unique" json:"reward_type"` // tier, cashback
	Layer          int             `gorm:"not null;default:0;uniqueIndex:idx_reward_records_unique" json:"layer"`    // 0 for cashback
	TransactionID  uint            `gorm:"not null;index;uniqueIndex:idx_reward_records_unique" json:"transaction_id"`
	TradeVolume    decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"trade_volume"` // fee basis the reward was computed from
	RewardAmount   decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"reward_amount"`
	RewardStatus   string          `gorm:"size:20;default:pending;index" json:"reward_status"` // pending, queued, paid, failed
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	PayoutRef      string          `gorm:"size:128" json:"payout_ref,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

func (RewardRecord) TableName() string {
	return "reward_records"
}

// RewardWalletBalance is the single mutable aggregate of the reward ledger,
// one row per user. Updated only via atomic increment-by-delta, never by
// read-modify-write. Invariant: total_unpaid equals the sum of the user's
// pending RewardRecords.
type RewardWalletBalance struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalPaid   decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_paid"`
	TotalUnpaid decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_unpaid"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (RewardWalletBalance) TableName() string {
	return "reward_wallet_balances"
}
