package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"trade-router/internal/auth"
	"trade-router/internal/services"
)

type TradingHandler struct {
	swapService   *services.SwapService
	rewardService *services.RewardService
}

func NewTradingHandler(swapService *services.SwapService, rewardService *services.RewardService) *TradingHandler {
	return &TradingHandler{
		swapService:   swapService,
		rewardService: rewardService,
	}
}

// Swap executes a fee-deducted swap and distributes referral rewards for it.
// POST /trade/swap
func (h *TradingHandler) Swap(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	walletAddress, _ := auth.GetWalletAddress(c)

	var req struct {
		WalletID    uint   `json:"wallet_id" binding:"required"`
		InputAsset  string `json:"input_asset" binding:"required"`
		OutputAsset string `json:"output_asset" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		SlippageBps int    `json:"slippage_bps"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if req.SlippageBps <= 0 {
		req.SlippageBps = 50
	}

	result, err := h.swapService.SwapWithFeeDeduction(c.Request.Context(), services.SwapRequest{
		UserID:       userID,
		WalletID:     req.WalletID,
		PayerAddress: walletAddress,
		InputAsset:   req.InputAsset,
		OutputAsset:  req.OutputAsset,
		TotalAmount:  amount,
		SlippageBps:  req.SlippageBps,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrQuoteUnavailable), errors.Is(err, services.ErrExecutionFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "swap failed"})
		}
		return
	}

	// The trade has settled; reward bookkeeping failures must not fail it.
	if result.TransactionID != nil {
		if err := h.rewardService.RecordReferralReward(*result.TransactionID, userID, result.FeeAmount); err != nil {
			log.Printf("[TradingHandler] Reward distribution for transaction %d needs replay: %v", *result.TransactionID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
