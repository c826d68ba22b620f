package jobs

import (
	"context"
	"log"
	"time"

	"trade-router/internal/services"
)

type RewardPayoutJob struct {
	payoutService   *services.PayoutService
	settingsService *services.SettingsService
}

func NewRewardPayoutJob(payoutService *services.PayoutService, settingsService *services.SettingsService) *RewardPayoutJob {
	return &RewardPayoutJob{
		payoutService:   payoutService,
		settingsService: settingsService,
	}
}

// Start begins the periodic reward payout job. The interval follows the
// configured payout frequency and is re-read each cycle so an admin change
// takes effect without a restart.
func (j *RewardPayoutJob) Start() {
	go func() {
		ctx := context.Background()

		for {
			interval := 24 * time.Hour
			if settings, err := j.settingsService.GetReferralSettings(); err != nil {
				log.Printf("[RewardPayoutJob] Failed to load settings, using default interval: %v", err)
			} else if settings.PayoutFrequencyHours > 0 {
				interval = time.Duration(settings.PayoutFrequencyHours) * time.Hour
			}

			timer := time.NewTimer(interval)
			<-timer.C

			if err := j.payoutService.ProcessPendingPayouts(ctx); err != nil {
				log.Printf("[RewardPayoutJob] Payout cycle error: %v", err)
			}
		}
	}()
}
