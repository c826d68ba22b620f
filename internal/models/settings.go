package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralSettings is the singleton admin-tunable configuration row for the
// referral program. Percentages are whole percents, not basis points.
type ReferralSettings struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Enabled              bool            `gorm:"default:true" json:"enabled"`
	Layer1Percent        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"layer1_percent"`
	Layer2Percent        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"layer2_percent"`
	Layer3Percent        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"layer3_percent"`
	CashbackPercent      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"cashback_percent"`
	MinEligibilitySol    decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"min_eligibility_sol"`
	PayoutFrequencyHours int             `gorm:"default:24" json:"payout_frequency_hours"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (ReferralSettings) TableName() string {
	return "referral_settings"
}
