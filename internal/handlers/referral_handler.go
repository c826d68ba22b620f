package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"trade-router/internal/auth"
	"trade-router/internal/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
	rewardService   *services.RewardService
}

func NewReferralHandler(referralService *services.ReferralService, rewardService *services.RewardService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		rewardService:   rewardService,
	}
}

// GetDashboard returns the user's referral dashboard summary
func (h *ReferralHandler) GetDashboard(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	summary, err := h.referralService.GetDashboardSummary(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// RotateLink generates a new active invite link for the current user
func (h *ReferralHandler) RotateLink(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	code, err := h.referralService.RotateLink(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate invite link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"code": code},
	})
}

// ApplyReferralCode applies an invite code to the current user
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.ProcessReferral(userID, req.Code); err != nil {
		if errors.Is(err, services.ErrSelfReferral) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral code applied successfully",
	})
}

// GetRewardHistory returns the current user's reward ledger rows
func (h *ReferralHandler) GetRewardHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rewards, err := h.rewardService.RewardHistory(userID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rewards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rewards,
	})
}
