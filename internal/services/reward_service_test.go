package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"trade-router/internal/models"
)

type rewardFixture struct {
	db              *gorm.DB
	service         *RewardService
	referralService *ReferralService
	trader          *models.User
	referrer1       *models.User
	referrer2       *models.User
}

// Sets up a trader with layer-1 and layer-2 edges only (no layer-3 upline)
// and default settings {cashback=25, layers=15/10/7}.
func setupRewardFixture(t *testing.T) *rewardFixture {
	db := setupTestDB(t)
	settingsService := NewSettingsService(db)
	referralService := NewReferralService(db)
	service := NewRewardService(db, settingsService, referralService)

	trader := createTestUser(t, db, "reward-trader")
	referrer1 := createTestUser(t, db, "reward-ref1")
	referrer2 := createTestUser(t, db, "reward-ref2")

	account1, err := referralService.GetOrCreateAccount(referrer1.ID)
	if err != nil {
		t.Fatalf("account for referrer1 failed: %v", err)
	}
	account2, err := referralService.GetOrCreateAccount(referrer2.ID)
	if err != nil {
		t.Fatalf("account for referrer2 failed: %v", err)
	}

	if _, err := referralService.insertEdge(account1.ID, trader.ID, 1); err != nil {
		t.Fatalf("layer-1 edge failed: %v", err)
	}
	if _, err := referralService.insertEdge(account2.ID, trader.ID, 2); err != nil {
		t.Fatalf("layer-2 edge failed: %v", err)
	}

	return &rewardFixture{
		db:              db,
		service:         service,
		referralService: referralService,
		trader:          trader,
		referrer1:       referrer1,
		referrer2:       referrer2,
	}
}

func createTestTransaction(t *testing.T, db *gorm.DB, userID uint, fee decimal.Decimal) *models.Transaction {
	txn := models.Transaction{
		UserID:      userID,
		WalletID:    1,
		InputAsset:  "SOL",
		OutputAsset: "USDC",
		TotalAmount: fee.Mul(decimal.NewFromInt(100)),
		NetAmount:   fee.Mul(decimal.NewFromInt(99)),
		FeeAmount:   fee,
		Reference:   "test-sig",
		Status:      models.TransactionStatusSuccess,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	return &txn
}

func unpaidBalance(t *testing.T, db *gorm.DB, userID uint) decimal.Decimal {
	var balance models.RewardWalletBalance
	if err := db.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero
		}
		t.Fatalf("failed to read balance for %d: %v", userID, err)
	}
	return balance.TotalUnpaid
}

// The worked example: fee 1.0, edges at layers 1 and 2 only.
// Expected rows: cashback 0.25 to the trader, tier 0.15 to the layer-1
// referrer, tier 0.10 to the layer-2 referrer, no layer-3 row.
func TestRecordReferralRewardDistribution(t *testing.T) {
	f := setupRewardFixture(t)

	fee := decimal.NewFromInt(1)
	txn := createTestTransaction(t, f.db, f.trader.ID, fee)

	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("RecordReferralReward failed: %v", err)
	}

	var rewards []models.RewardRecord
	f.db.Where("transaction_id = ?", txn.ID).Order("layer").Find(&rewards)
	if len(rewards) != 3 {
		t.Fatalf("expected 3 reward rows, got %d", len(rewards))
	}

	cashback := rewards[0]
	if cashback.RewardType != models.RewardTypeCashback || cashback.UserID != f.trader.ID {
		t.Errorf("unexpected cashback row: %+v", cashback)
	}
	if !cashback.RewardAmount.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("expected cashback 0.25, got %s", cashback.RewardAmount)
	}
	if cashback.ReferralEdgeID != nil {
		t.Errorf("cashback row must not reference an edge")
	}

	tier1 := rewards[1]
	if tier1.Layer != 1 || tier1.UserID != f.referrer1.ID || !tier1.RewardAmount.Equal(decimal.NewFromFloat(0.15)) {
		t.Errorf("unexpected layer-1 tier row: %+v", tier1)
	}
	if tier1.ReferralEdgeID == nil {
		t.Errorf("tier row must reference its edge")
	}

	tier2 := rewards[2]
	if tier2.Layer != 2 || tier2.UserID != f.referrer2.ID || !tier2.RewardAmount.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("unexpected layer-2 tier row: %+v", tier2)
	}

	var layer3Count int64
	f.db.Model(&models.RewardRecord{}).Where("transaction_id = ? AND layer = ?", txn.ID, 3).Count(&layer3Count)
	if layer3Count != 0 {
		t.Errorf("expected no layer-3 reward, got %d", layer3Count)
	}

	// Every row starts pending with the fee as its trade volume
	for _, r := range rewards {
		if r.RewardStatus != models.RewardStatusPending {
			t.Errorf("expected pending status, got %s", r.RewardStatus)
		}
		if !r.TradeVolume.Equal(fee) {
			t.Errorf("expected trade volume %s, got %s", fee, r.TradeVolume)
		}
	}

	// Balance increments: trader +0.25, referrer1 +0.15, referrer2 +0.10
	if got := unpaidBalance(t, f.db, f.trader.ID); !got.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("trader unpaid: expected 0.25, got %s", got)
	}
	if got := unpaidBalance(t, f.db, f.referrer1.ID); !got.Equal(decimal.NewFromFloat(0.15)) {
		t.Errorf("referrer1 unpaid: expected 0.15, got %s", got)
	}
	if got := unpaidBalance(t, f.db, f.referrer2.ID); !got.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("referrer2 unpaid: expected 0.10, got %s", got)
	}
}

func TestRecordReferralRewardReplayIsIdempotent(t *testing.T) {
	f := setupRewardFixture(t)

	fee := decimal.NewFromInt(1)
	txn := createTestTransaction(t, f.db, f.trader.ID, fee)

	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("first distribution failed: %v", err)
	}
	// Replay, as a retry of a partially-failed distribution would
	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	var count int64
	f.db.Model(&models.RewardRecord{}).Where("transaction_id = ?", txn.ID).Count(&count)
	if count != 3 {
		t.Errorf("replay duplicated rows: expected 3, got %d", count)
	}

	if got := unpaidBalance(t, f.db, f.trader.ID); !got.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("replay double-counted trader balance: got %s", got)
	}
	if got := unpaidBalance(t, f.db, f.referrer1.ID); !got.Equal(decimal.NewFromFloat(0.15)) {
		t.Errorf("replay double-counted referrer1 balance: got %s", got)
	}
}

func TestRecordReferralRewardDisabled(t *testing.T) {
	f := setupRewardFixture(t)

	if _, err := f.service.settingsService.UpdateReferralSettings(map[string]interface{}{
		"enabled": false,
	}); err != nil {
		t.Fatalf("failed to disable settings: %v", err)
	}

	fee := decimal.NewFromInt(1)
	txn := createTestTransaction(t, f.db, f.trader.ID, fee)

	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("RecordReferralReward failed: %v", err)
	}

	var count int64
	f.db.Model(&models.RewardRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("disabled program still wrote %d rewards", count)
	}
}

// After N distributions with no payouts, total_unpaid must equal the sum of
// pending reward rows for every user involved.
func TestUnpaidMatchesPendingSum(t *testing.T) {
	f := setupRewardFixture(t)

	fees := []decimal.Decimal{
		decimal.NewFromFloat(0.4),
		decimal.NewFromFloat(1.2),
		decimal.NewFromFloat(0.05),
	}
	for _, fee := range fees {
		txn := createTestTransaction(t, f.db, f.trader.ID, fee)
		if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
			t.Fatalf("distribution for fee %s failed: %v", fee, err)
		}
	}

	for _, userID := range []uint{f.trader.ID, f.referrer1.ID, f.referrer2.ID} {
		var pendingSum decimal.Decimal
		row := f.db.Model(&models.RewardRecord{}).
			Where("user_id = ? AND reward_status = ?", userID, models.RewardStatusPending).
			Select("COALESCE(SUM(reward_amount), 0)").Row()
		if err := row.Scan(&pendingSum); err != nil {
			t.Fatalf("failed to sum pending rewards for %d: %v", userID, err)
		}

		if got := unpaidBalance(t, f.db, userID); !got.Equal(pendingSum) {
			t.Errorf("user %d: total_unpaid %s diverged from pending sum %s", userID, got, pendingSum)
		}
	}
}
