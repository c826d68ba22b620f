package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"trade-router/internal/models"
)

func TestProcessPendingPayouts(t *testing.T) {
	f := setupRewardFixture(t)

	// Only users with at least 0.2 SOL pending get paid this cycle
	settingsService := f.service.settingsService
	if _, err := settingsService.UpdateReferralSettings(map[string]interface{}{
		"min_eligibility_sol": decimal.NewFromFloat(0.2),
	}); err != nil {
		t.Fatalf("failed to set eligibility threshold: %v", err)
	}

	fee := decimal.NewFromInt(1)
	txn := createTestTransaction(t, f.db, f.trader.ID, fee)
	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("distribution failed: %v", err)
	}
	// trader pending 0.25 (eligible), referrer1 0.15, referrer2 0.10 (both below)

	transferer := &fakeTransferer{balance: decimal.NewFromInt(1000)}
	payoutService := NewPayoutService(f.db, f.service, settingsService, transferer, "server-wallet")

	if err := payoutService.ProcessPendingPayouts(context.Background()); err != nil {
		t.Fatalf("ProcessPendingPayouts failed: %v", err)
	}

	if transferer.transferCalls != 1 {
		t.Fatalf("expected 1 transfer (trader only), got %d", transferer.transferCalls)
	}

	var paid []models.RewardRecord
	f.db.Where("user_id = ? AND reward_status = ?", f.trader.ID, models.RewardStatusPaid).Find(&paid)
	if len(paid) != 1 {
		t.Fatalf("expected trader's reward paid, got %d rows", len(paid))
	}
	if paid[0].PaidAt == nil || paid[0].PayoutRef == "" {
		t.Errorf("paid row missing payout metadata: %+v", paid[0])
	}

	var traderBalance models.RewardWalletBalance
	f.db.Where("user_id = ?", f.trader.ID).First(&traderBalance)
	if !traderBalance.TotalPaid.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("expected total_paid 0.25, got %s", traderBalance.TotalPaid)
	}
	if !traderBalance.TotalUnpaid.Equal(decimal.Zero) {
		t.Errorf("expected total_unpaid 0, got %s", traderBalance.TotalUnpaid)
	}

	// Below-threshold users stay pending and untouched
	var pending int64
	f.db.Model(&models.RewardRecord{}).
		Where("user_id IN ? AND reward_status = ?", []uint{f.referrer1.ID, f.referrer2.ID}, models.RewardStatusPending).
		Count(&pending)
	if pending != 2 {
		t.Errorf("expected referrer rewards to stay pending, got %d", pending)
	}
}

// A reward distributed after a payout cycle aggregates the pending sums is
// still swept up by the claim. The transfer must cover everything claimed,
// not a stale pre-claim sum, or the extra reward is marked paid without ever
// being transferred.
func TestPayUserCoversRewardsDistributedAfterAggregation(t *testing.T) {
	f := setupRewardFixture(t)

	fee := decimal.NewFromInt(1)
	first := createTestTransaction(t, f.db, f.trader.ID, fee)
	if err := f.service.RecordReferralReward(first.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("first distribution failed: %v", err)
	}

	// A second trade settles between the aggregation and the claim.
	second := createTestTransaction(t, f.db, f.trader.ID, fee)
	if err := f.service.RecordReferralReward(second.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("second distribution failed: %v", err)
	}

	transferer := &fakeTransferer{balance: decimal.NewFromInt(1000)}
	payoutService := NewPayoutService(f.db, f.service, f.service.settingsService, transferer, "server-wallet")

	if err := payoutService.payUser(context.Background(), f.trader.ID); err != nil {
		t.Fatalf("payUser failed: %v", err)
	}

	// Both cashback rewards (0.25 each) were claimed; the transfer must
	// cover both.
	if !transferer.lastAmount.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("expected transfer of 0.5, got %s", transferer.lastAmount)
	}

	var balance models.RewardWalletBalance
	f.db.Where("user_id = ?", f.trader.ID).First(&balance)
	if !balance.TotalPaid.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("expected total_paid 0.5, got %s", balance.TotalPaid)
	}
	if !balance.TotalUnpaid.Equal(decimal.Zero) {
		t.Errorf("expected total_unpaid 0, got %s", balance.TotalUnpaid)
	}

	// Nothing is left pending, and the ledger invariant holds.
	var pendingSum decimal.Decimal
	row := f.db.Model(&models.RewardRecord{}).
		Where("user_id = ? AND reward_status = ?", f.trader.ID, models.RewardStatusPending).
		Select("COALESCE(SUM(reward_amount), 0)").Row()
	if err := row.Scan(&pendingSum); err != nil {
		t.Fatalf("failed to sum pending rewards: %v", err)
	}
	if !balance.TotalUnpaid.Equal(pendingSum) {
		t.Errorf("total_unpaid %s diverged from pending sum %s", balance.TotalUnpaid, pendingSum)
	}
}

func TestProcessPendingPayoutsRevertsOnTransferFailure(t *testing.T) {
	f := setupRewardFixture(t)

	fee := decimal.NewFromInt(1)
	txn := createTestTransaction(t, f.db, f.trader.ID, fee)
	if err := f.service.RecordReferralReward(txn.ID, f.trader.ID, fee); err != nil {
		t.Fatalf("distribution failed: %v", err)
	}

	transferer := &fakeTransferer{balance: decimal.NewFromInt(1000), failTransfer: true}
	payoutService := NewPayoutService(f.db, f.service, f.service.settingsService, transferer, "server-wallet")

	if err := payoutService.ProcessPendingPayouts(context.Background()); err != nil {
		t.Fatalf("ProcessPendingPayouts failed: %v", err)
	}

	// Everything returns to pending for the next cycle; nothing marked paid
	var paidOrQueued int64
	f.db.Model(&models.RewardRecord{}).
		Where("reward_status IN ?", []string{models.RewardStatusPaid, models.RewardStatusQueued}).
		Count(&paidOrQueued)
	if paidOrQueued != 0 {
		t.Errorf("expected all rewards reverted to pending, %d still paid/queued", paidOrQueued)
	}

	var traderBalance models.RewardWalletBalance
	f.db.Where("user_id = ?", f.trader.ID).First(&traderBalance)
	if !traderBalance.TotalPaid.Equal(decimal.Zero) {
		t.Errorf("total_paid moved despite failed transfer: %s", traderBalance.TotalPaid)
	}
}
