package services

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"trade-router/internal/models"
)

// RewardService distributes cashback and tier rewards for every recorded
// fee-bearing transaction and maintains the paid/unpaid balance ledger.
type RewardService struct {
	db              *gorm.DB
	settingsService *SettingsService
	referralService *ReferralService
}

func NewRewardService(db *gorm.DB, settingsService *SettingsService, referralService *ReferralService) *RewardService {
	return &RewardService{
		db:              db,
		settingsService: settingsService,
		referralService: referralService,
	}
}

// RecordReferralReward writes the cashback reward for the trader and one tier
// reward per existing referral edge (at most three), incrementing each
// recipient's unpaid balance. Called after the transaction is durably
// recorded, so failures are logged and surfaced for replay, never allowed to
// make the settled trade look failed. Replays are idempotent per
// (transaction, reward type, layer).
func (s *RewardService) RecordReferralReward(transactionID, traderID uint, feeAmount decimal.Decimal) error {
	settings, err := s.settingsService.GetReferralSettings()
	if err != nil {
		return fmt.Errorf("failed to load referral settings: %w", err)
	}

	if !settings.Enabled {
		return nil
	}

	periodStart := time.Now()
	periodEnd := periodStart.Add(time.Duration(settings.PayoutFrequencyHours) * time.Hour)
	failed := 0
	total := 0

	// Cashback back to the trader.
	cashbackAmount := feeAmount.Mul(settings.CashbackPercent).Div(decimal.NewFromInt(100))
	if cashbackAmount.IsPositive() {
		total++
		reward := models.RewardRecord{
			UserID:        traderID,
			RewardType:    models.RewardTypeCashback,
			Layer:         0,
			TransactionID: transactionID,
			TradeVolume:   feeAmount,
			RewardAmount:  cashbackAmount,
			RewardStatus:  models.RewardStatusPending,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
		}
		if err := s.writeReward(&reward); err != nil {
			log.Printf("[RewardService] Cashback write failed for txn %d user %d: %v", transactionID, traderID, err)
			failed++
		}
	}

	// Tier rewards up the referral graph.
	edges, err := s.referralService.GetEdgesForTrader(traderID)
	if err != nil {
		return fmt.Errorf("failed to load referral edges for user %d: %w", traderID, err)
	}

	for _, edge := range edges {
		percent := s.layerPercent(settings, edge.Layer)
		rewardAmount := feeAmount.Mul(percent).Div(decimal.NewFromInt(100))
		if !rewardAmount.IsPositive() {
			continue
		}

		var referrerAccount models.ReferralAccount
		if err := s.db.Where("id = ?", edge.ReferrerAccountID).First(&referrerAccount).Error; err != nil {
			log.Printf("[RewardService] Failed to resolve referrer account %d for edge %d: %v", edge.ReferrerAccountID, edge.ID, err)
			failed++
			total++
			continue
		}

		total++
		edgeID := edge.ID
		reward := models.RewardRecord{
			ReferralEdgeID: &edgeID,
			UserID:         referrerAccount.UserID,
			RewardType:     models.RewardTypeTier,
			Layer:          edge.Layer,
			TransactionID:  transactionID,
			TradeVolume:    feeAmount,
			RewardAmount:   rewardAmount,
			RewardStatus:   models.RewardStatusPending,
			PeriodStart:    periodStart,
			PeriodEnd:      periodEnd,
		}
		if err := s.writeReward(&reward); err != nil {
			log.Printf("[RewardService] Tier reward write failed for txn %d layer %d user %d: %v",
				transactionID, edge.Layer, referrerAccount.UserID, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("reward distribution incomplete for transaction %d: %d of %d writes failed", transactionID, failed, total)
	}
	return nil
}

// writeReward inserts the reward row and increments the recipient's unpaid
// balance. The insert is idempotent; the increment is applied only when a new
// row was actually created, so a replay cannot double-count.
func (s *RewardService) writeReward(reward *models.RewardRecord) error {
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(reward)
	if result.Error != nil {
		return fmt.Errorf("failed to insert reward record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Already distributed for this (transaction, type, layer).
		return nil
	}

	if err := s.IncrementUnpaid(reward.UserID, reward.RewardAmount); err != nil {
		// The reward row exists but the balance did not move. Surfaced for
		// reconciliation against the pending-rewards sum.
		return fmt.Errorf("reward %d recorded but balance increment failed: %w", reward.ID, err)
	}
	return nil
}

// layerPercent picks the configured percentage for a tier layer.
func (s *RewardService) layerPercent(settings *models.ReferralSettings, layer int) decimal.Decimal {
	switch layer {
	case 1:
		return settings.Layer1Percent
	case 2:
		return settings.Layer2Percent
	case 3:
		return settings.Layer3Percent
	default:
		return decimal.Zero
	}
}

// IncrementUnpaid adds delta to the user's unpaid balance as a single atomic
// increment at the storage layer, creating the balance row on first use.
func (s *RewardService) IncrementUnpaid(userID uint, delta decimal.Decimal) error {
	if err := s.ensureBalanceRow(userID); err != nil {
		return err
	}

	return s.db.Model(&models.RewardWalletBalance{}).Where("user_id = ?", userID).
		Update("total_unpaid", gorm.Expr("total_unpaid + ?", delta)).Error
}

// MarkPaid moves delta from unpaid to paid for a completed payout, again as
// atomic increments.
func (s *RewardService) MarkPaid(userID uint, delta decimal.Decimal) error {
	if err := s.ensureBalanceRow(userID); err != nil {
		return err
	}

	return s.db.Model(&models.RewardWalletBalance{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_unpaid": gorm.Expr("total_unpaid - ?", delta),
			"total_paid":   gorm.Expr("total_paid + ?", delta),
		}).Error
}

func (s *RewardService) ensureBalanceRow(userID uint) error {
	balance := models.RewardWalletBalance{
		UserID:      userID,
		TotalPaid:   decimal.Zero,
		TotalUnpaid: decimal.Zero,
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&balance).Error
}

// PendingRewards lists a user's pending reward rows, newest first.
func (s *RewardService) PendingRewards(userID uint) ([]models.RewardRecord, error) {
	var rewards []models.RewardRecord
	if err := s.db.Where("user_id = ? AND reward_status = ?", userID, models.RewardStatusPending).
		Order("created_at DESC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// RewardHistory lists a user's reward rows regardless of status, newest first.
func (s *RewardService) RewardHistory(userID uint, limit int) ([]models.RewardRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rewards []models.RewardRecord
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
