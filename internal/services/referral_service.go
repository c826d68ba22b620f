package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"trade-router/internal/models"
)

var (
	// ErrSelfReferral is returned when a user presents their own invite code.
	ErrSelfReferral = errors.New("cannot use your own referral code")
)

// ReferralService manages referral accounts, rotating invite links and the
// directed referral-edge graph.
type ReferralService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{
		db: db,
	}
}

// generateRandomCode generates a random 8-character code
func (s *ReferralService) generateRandomCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:8], nil
}

// GetOrCreateAccount returns the user's referral account, creating it (and
// its first active invite link) on first access. Idempotent.
func (s *ReferralService) GetOrCreateAccount(userID uint) (*models.ReferralAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var account models.ReferralAccount
	result := s.db.Where("user_id = ?", userID).First(&account)

	if result.Error == nil {
		return &account, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	code, err := s.generateRandomCode()
	if err != nil {
		return nil, err
	}

	account = models.ReferralAccount{
		UserID:       userID,
		ReferralCode: code,
	}
	if err := s.db.Create(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral account: %w", err)
	}

	link := models.ReferralLink{
		AccountID: account.ID,
		Code:      code,
		IsActive:  true,
	}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}

	log.Printf("[ReferralService] Created referral account %d for user %d with code %s", account.ID, userID, code)
	return &account, nil
}

// RotateLink deactivates the account's current active invite link and
// activates a freshly generated one. Link history is retained. Returns the
// new code.
func (s *ReferralService) RotateLink(userID uint) (string, error) {
	account, err := s.GetOrCreateAccount(userID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if err := s.db.Model(&models.ReferralLink{}).
		Where("account_id = ? AND is_active = ?", account.ID, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": now,
		}).Error; err != nil {
		return "", fmt.Errorf("failed to deactivate referral link: %w", err)
	}

	code, err := s.generateRandomCode()
	if err != nil {
		return "", err
	}

	link := models.ReferralLink{
		AccountID: account.ID,
		Code:      code,
		IsActive:  true,
	}
	if err := s.db.Create(&link).Error; err != nil {
		return "", fmt.Errorf("failed to create referral link: %w", err)
	}

	if err := s.db.Model(&models.ReferralAccount{}).Where("id = ?", account.ID).
		Update("last_link_update_at", now).Error; err != nil {
		log.Printf("[ReferralService] Warning: failed to stamp link update for account %d: %v", account.ID, err)
	}

	log.Printf("[ReferralService] Rotated invite link for user %d: %s", userID, code)
	return code, nil
}

// ProcessReferral records that newUserID registered with the given invite
// code: sets referred_by (first referral wins), inserts the layer-1 edge and
// propagates up the referrer's own chain for layers 2 and 3. An unknown or
// inactive code is silently ignored; a missing upline just stops propagation.
func (s *ReferralService) ProcessReferral(newUserID uint, inviteCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var link models.ReferralLink
	if err := s.db.Where("code = ? AND is_active = ?", inviteCode, true).First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("[ReferralService] Ignoring unknown or inactive invite code %q for user %d", inviteCode, newUserID)
			return nil
		}
		return err
	}

	var referrerAccount models.ReferralAccount
	if err := s.db.Where("id = ?", link.AccountID).First(&referrerAccount).Error; err != nil {
		return fmt.Errorf("failed to resolve referrer account: %w", err)
	}

	if referrerAccount.UserID == newUserID {
		return ErrSelfReferral
	}

	// First referral wins: a user who already has a referrer keeps it.
	var newUser models.User
	if err := s.db.Where("id = ?", newUserID).First(&newUser).Error; err != nil {
		return fmt.Errorf("failed to load referred user: %w", err)
	}
	if newUser.ReferredBy != nil {
		log.Printf("[ReferralService] User %d already referred by %d, ignoring code %s", newUserID, *newUser.ReferredBy, inviteCode)
		return nil
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", newUserID).
		Update("referred_by", referrerAccount.UserID).Error; err != nil {
		return fmt.Errorf("failed to record referrer: %w", err)
	}

	if _, err := s.insertEdge(referrerAccount.ID, newUserID, 1); err != nil {
		return err
	}

	if err := s.propagateUpline(referrerAccount.UserID, newUserID); err != nil {
		return err
	}

	log.Printf("[ReferralService] User %d referred by user %d via code %s", newUserID, referrerAccount.UserID, inviteCode)
	return nil
}

// propagateUpline walks the direct-referral chain above the layer-1 referrer
// and inserts edges for layers 2..MaxReferralDepth. The depth cap lives here
// and nowhere else.
func (s *ReferralService) propagateUpline(directReferrerUserID, newUserID uint) error {
	currentUserID := directReferrerUserID

	for layer := 2; layer <= models.MaxReferralDepth; layer++ {
		// Who referred the current referrer? Only a direct (layer-1) edge
		// identifies the next hop up.
		var uplineEdge models.ReferralEdge
		err := s.db.Where("referred_user_id = ? AND layer = ?", currentUserID, 1).First(&uplineEdge).Error
		if err == gorm.ErrRecordNotFound {
			return nil // no upline beyond this point, not an error
		}
		if err != nil {
			return err
		}

		if _, err := s.insertEdge(uplineEdge.ReferrerAccountID, newUserID, layer); err != nil {
			return err
		}

		var uplineAccount models.ReferralAccount
		if err := s.db.Where("id = ?", uplineEdge.ReferrerAccountID).First(&uplineAccount).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		currentUserID = uplineAccount.UserID
	}

	return nil
}

// insertEdge inserts a referral edge, treating a duplicate as a no-op.
// Returns whether a new row was actually created.
func (s *ReferralService) insertEdge(referrerAccountID, referredUserID uint, layer int) (bool, error) {
	edge := models.ReferralEdge{
		ReferrerAccountID: referrerAccountID,
		ReferredUserID:    referredUserID,
		Layer:             layer,
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert referral edge: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetEdgesForTrader returns every edge pointing at the given referred user,
// at most one per layer.
func (s *ReferralService) GetEdgesForTrader(traderID uint) ([]models.ReferralEdge, error) {
	var edges []models.ReferralEdge
	if err := s.db.Where("referred_user_id = ?", traderID).Order("layer").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// LayerSummary aggregates referral counts and tier rewards for one layer.
type LayerSummary struct {
	Layer        int             `json:"layer"`
	Referrals    int64           `json:"referrals"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
}

// DashboardSummary is the read surface for a user's referral dashboard.
type DashboardSummary struct {
	ReferralCode   string          `json:"referral_code"`
	ActiveCode     string          `json:"active_code"`
	Layers         []LayerSummary  `json:"layers"`
	CashbackEarned decimal.Decimal `json:"cashback_earned"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalUnpaid    decimal.Decimal `json:"total_unpaid"`
}

// GetDashboardSummary aggregates per-layer referral counts and rewards plus
// the ledger totals. Creates the referral account lazily.
func (s *ReferralService) GetDashboardSummary(userID uint) (*DashboardSummary, error) {
	account, err := s.GetOrCreateAccount(userID)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		ReferralCode:   account.ReferralCode,
		CashbackEarned: decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalUnpaid:    decimal.Zero,
	}

	var activeLink models.ReferralLink
	if err := s.db.Where("account_id = ? AND is_active = ?", account.ID, true).First(&activeLink).Error; err == nil {
		summary.ActiveCode = activeLink.Code
	}

	for layer := 1; layer <= models.MaxReferralDepth; layer++ {
		var count int64
		if err := s.db.Model(&models.ReferralEdge{}).
			Where("referrer_account_id = ? AND layer = ?", account.ID, layer).
			Count(&count).Error; err != nil {
			return nil, err
		}

		var rewardSum decimal.Decimal
		row := s.db.Model(&models.RewardRecord{}).
			Where("user_id = ? AND reward_type = ? AND layer = ?", userID, models.RewardTypeTier, layer).
			Select("COALESCE(SUM(reward_amount), 0)").Row()
		if err := row.Scan(&rewardSum); err != nil {
			rewardSum = decimal.Zero
		}

		summary.Layers = append(summary.Layers, LayerSummary{
			Layer:        layer,
			Referrals:    count,
			RewardAmount: rewardSum,
		})
	}

	var cashback decimal.Decimal
	row := s.db.Model(&models.RewardRecord{}).
		Where("user_id = ? AND reward_type = ?", userID, models.RewardTypeCashback).
		Select("COALESCE(SUM(reward_amount), 0)").Row()
	if err := row.Scan(&cashback); err == nil {
		summary.CashbackEarned = cashback
	}

	var balance models.RewardWalletBalance
	if err := s.db.Where("user_id = ?", userID).First(&balance).Error; err == nil {
		summary.TotalPaid = balance.TotalPaid
		summary.TotalUnpaid = balance.TotalUnpaid
	}

	return summary, nil
}
