package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"trade-router/internal/models"
)

// settingsCacheTTL bounds how stale a cached settings row may be. Every
// fee-bearing transaction reads settings, so storage is not hit per trade.
const settingsCacheTTL = 5 * time.Second

// SettingsService owns the singleton ReferralSettings row with a short TTL
// cache. Mutation paths must call Invalidate so the next read is fresh.
type SettingsService struct {
	db *gorm.DB

	mu        sync.RWMutex
	cached    *models.ReferralSettings
	lastFetch time.Time
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		db: db,
	}
}

// defaultReferralSettings applies when no settings row exists yet.
func defaultReferralSettings() models.ReferralSettings {
	return models.ReferralSettings{
		Enabled:              true,
		Layer1Percent:        decimal.NewFromInt(15),
		Layer2Percent:        decimal.NewFromInt(10),
		Layer3Percent:        decimal.NewFromInt(7),
		CashbackPercent:      decimal.NewFromInt(25),
		MinEligibilitySol:    decimal.Zero,
		PayoutFrequencyHours: 24,
	}
}

// GetReferralSettings returns the singleton settings row, creating it with
// defaults on first access. Reads within the TTL window are served from cache.
func (s *SettingsService) GetReferralSettings() (*models.ReferralSettings, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.lastFetch) < settingsCacheTTL {
		cached := *s.cached
		s.mu.RUnlock()
		return &cached, nil
	}
	s.mu.RUnlock()

	var settings models.ReferralSettings
	result := s.db.Order("id").First(&settings)

	if result.Error == gorm.ErrRecordNotFound {
		settings = defaultReferralSettings()
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create default referral settings: %w", err)
		}
		log.Printf("[SettingsService] Created default referral settings")
	} else if result.Error != nil {
		return nil, result.Error
	}

	s.mu.Lock()
	s.cached = &settings
	s.lastFetch = time.Now()
	s.mu.Unlock()

	copied := settings
	return &copied, nil
}

// UpdateReferralSettings persists changes to the singleton row and drops the
// cache so concurrent readers pick up the new percentages on next fetch.
func (s *SettingsService) UpdateReferralSettings(updates map[string]interface{}) (*models.ReferralSettings, error) {
	current, err := s.GetReferralSettings()
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.ReferralSettings{}).Where("id = ?", current.ID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update referral settings: %w", err)
	}

	s.Invalidate()
	return s.GetReferralSettings()
}

// Invalidate drops the cached settings row. Callable by any mutation path.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
