package models

import (
	"time"
)

// ReferralAccount holds a user's canonical referral identity. Created lazily
// on first dashboard view or first successful referral, never deleted.
type ReferralAccount struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User             *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReferralCode     string     `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	LastLinkUpdateAt *time.Time `json:"last_link_update_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (ReferralAccount) TableName() string {
	return "referral_accounts"
}

// ReferralLink is a rotatable invite code bound to one account. Exactly one
// link per account has is_active=true; rotation deactivates the previous one
// and keeps its row.
type ReferralLink struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	AccountID     uint             `gorm:"not null;index" json:"account_id"`
	Account       *ReferralAccount `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Code          string           `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive      bool             `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	DeactivatedAt *time.Time       `json:"deactivated_at,omitempty"`
}

func (ReferralLink) TableName() string {
	return "referral_links"
}

// ReferralEdge is a directed, immutable edge in the referral graph.
// Layer 1 is a direct referral, layers 2-3 the bounded up-line. The composite
// unique index makes edge insertion idempotent.
type ReferralEdge struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	ReferrerAccountID uint             `gorm:"not null;uniqueIndex:idx_referral_edges_unique" json:"referrer_account_id"`
	ReferrerAccount   *ReferralAccount `gorm:"foreignKey:ReferrerAccountID" json:"referrer_account,omitempty"`
	ReferredUserID    uint             `gorm:"not null;index;uniqueIndex:idx_referral_edges_unique" json:"referred_user_id"`
	ReferredUser      *User            `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"`
	Layer             int              `gorm:"not null;uniqueIndex:idx_referral_edges_unique" json:"layer"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (ReferralEdge) TableName() string {
	return "referral_edges"
}

// MaxReferralDepth caps the up-line walk; no layer-4 edge is ever created.
const MaxReferralDepth = 3
