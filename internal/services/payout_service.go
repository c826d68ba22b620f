package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"trade-router/internal/models"
)

// PayoutService pays accumulated pending rewards out on-chain. A user is paid
// only once their pending sum reaches the configured eligibility threshold.
type PayoutService struct {
	db              *gorm.DB
	rewardService   *RewardService
	settingsService *SettingsService
	transferer      ValueTransferer
	serverWallet    string // pays the reward transfers
}

func NewPayoutService(db *gorm.DB, rewardService *RewardService, settingsService *SettingsService, transferer ValueTransferer, serverWallet string) *PayoutService {
	return &PayoutService{
		db:              db,
		rewardService:   rewardService,
		settingsService: settingsService,
		transferer:      transferer,
		serverWallet:    serverWallet,
	}
}

// ProcessPendingPayouts batches every user's pending rewards and transfers one
// payment per eligible user. Rows are queued for the duration of the transfer
// and flipped to paid on success; on failure they return to pending for the
// next cycle.
func (ps *PayoutService) ProcessPendingPayouts(ctx context.Context) error {
	settings, err := ps.settingsService.GetReferralSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.Enabled {
		return nil
	}

	type pendingSum struct {
		UserID uint
		Total  decimal.Decimal
	}

	var sums []pendingSum
	if err := ps.db.Model(&models.RewardRecord{}).
		Select("user_id, COALESCE(SUM(reward_amount), 0) as total").
		Where("reward_status = ?", models.RewardStatusPending).
		Group("user_id").Scan(&sums).Error; err != nil {
		return fmt.Errorf("failed to aggregate pending rewards: %w", err)
	}

	for _, sum := range sums {
		if sum.Total.LessThan(settings.MinEligibilitySol) {
			continue
		}
		if err := ps.payUser(ctx, sum.UserID); err != nil {
			log.Printf("[PayoutService] Payout for user %d failed: %v", sum.UserID, err)
		}
	}

	return nil
}

func (ps *PayoutService) payUser(ctx context.Context, userID uint) error {
	var user models.User
	if err := ps.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.WalletAddress == "" {
		return fmt.Errorf("user %d has no wallet address", userID)
	}

	batchID := uuid.NewString()

	// Claim the rows for this batch so a concurrent cycle cannot pay them too.
	claim := ps.db.Model(&models.RewardRecord{}).
		Where("user_id = ? AND reward_status = ?", userID, models.RewardStatusPending).
		Updates(map[string]interface{}{
			"reward_status": models.RewardStatusQueued,
			"payout_ref":    batchID,
		})
	if claim.Error != nil {
		return fmt.Errorf("failed to queue rewards: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil
	}

	// Transfer exactly what was claimed. Rewards distributed between the
	// pending aggregation and the claim are swept into this batch, so any
	// pre-claim sum can be stale.
	var total decimal.Decimal
	row := ps.db.Model(&models.RewardRecord{}).
		Where("payout_ref = ? AND reward_status = ?", batchID, models.RewardStatusQueued).
		Select("COALESCE(SUM(reward_amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		ps.revertBatch(batchID)
		return fmt.Errorf("failed to sum queued batch %s: %w", batchID, err)
	}

	transferCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	sig, err := ps.transferer.Transfer(transferCtx, ps.serverWallet, user.WalletAddress, total)
	cancel()
	if err != nil {
		ps.revertBatch(batchID)
		return fmt.Errorf("transfer of %s to %s failed: %w", total, user.WalletAddress, err)
	}

	now := time.Now()
	if err := ps.db.Model(&models.RewardRecord{}).
		Where("payout_ref = ? AND reward_status = ?", batchID, models.RewardStatusQueued).
		Updates(map[string]interface{}{
			"reward_status": models.RewardStatusPaid,
			"payout_ref":    sig,
			"paid_at":       now,
		}).Error; err != nil {
		// Money moved but rows are stuck queued. Surfaced for reconciliation.
		return fmt.Errorf("transfer %s completed but status update failed: %w", sig, err)
	}

	if err := ps.rewardService.MarkPaid(userID, total); err != nil {
		return fmt.Errorf("transfer %s completed but balance update failed: %w", sig, err)
	}

	log.Printf("[PayoutService] Paid %s to user %d (tx %s)", total, userID, sig)
	return nil
}

// revertBatch returns a queued batch to pending so the next cycle retries it.
func (ps *PayoutService) revertBatch(batchID string) {
	if err := ps.db.Model(&models.RewardRecord{}).
		Where("payout_ref = ? AND reward_status = ?", batchID, models.RewardStatusQueued).
		Updates(map[string]interface{}{
			"reward_status": models.RewardStatusPending,
			"payout_ref":    "",
		}).Error; err != nil {
		log.Printf("[PayoutService] Failed to revert queued batch %s: %v", batchID, err)
	}
}
