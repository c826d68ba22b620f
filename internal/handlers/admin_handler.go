package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"trade-router/internal/services"
)

type AdminHandler struct {
	settingsService *services.SettingsService
	swapService     *services.SwapService
}

func NewAdminHandler(settingsService *services.SettingsService, swapService *services.SwapService) *AdminHandler {
	return &AdminHandler{
		settingsService: settingsService,
		swapService:     swapService,
	}
}

// GetSettings returns the current referral settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetReferralSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings mutates the referral settings and invalidates the cache
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Enabled              *bool   `json:"enabled"`
		Layer1Percent        *string `json:"layer1_percent"`
		Layer2Percent        *string `json:"layer2_percent"`
		Layer3Percent        *string `json:"layer3_percent"`
		CashbackPercent      *string `json:"cashback_percent"`
		MinEligibilitySol    *string `json:"min_eligibility_sol"`
		PayoutFrequencyHours *int    `json:"payout_frequency_hours"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	decimalFields := map[string]*string{
		"layer1_percent":      req.Layer1Percent,
		"layer2_percent":      req.Layer2Percent,
		"layer3_percent":      req.Layer3Percent,
		"cashback_percent":    req.CashbackPercent,
		"min_eligibility_sol": req.MinEligibilitySol,
	}
	for column, value := range decimalFields {
		if value == nil {
			continue
		}
		parsed, err := decimal.NewFromString(*value)
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value for " + column})
			return
		}
		updates[column] = parsed
	}
	if req.PayoutFrequencyHours != nil {
		if *req.PayoutFrequencyHours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payout_frequency_hours must be positive"})
			return
		}
		updates["payout_frequency_hours"] = *req.PayoutFrequencyHours
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings to update"})
		return
	}

	settings, err := h.settingsService.UpdateReferralSettings(updates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// GetFailedFeeTransfers lists fees charged but not captured on-chain, for
// reconciliation review
func (h *AdminHandler) GetFailedFeeTransfers(c *gin.Context) {
	records, err := h.swapService.FailedFeeTransfers(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fee records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}
