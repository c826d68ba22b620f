package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"trade-router/internal/jupiter"
	"trade-router/internal/models"
)

var (
	// ErrInsufficientBalance aborts a swap before any value moves.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrQuoteUnavailable means the fresh pre-execution quote failed.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrExecutionFailed means the venue rejected or dropped the swap.
	ErrExecutionFailed = errors.New("execution failed")
)

// feeTransferSkipped marks fee records whose transfer was skipped by
// configuration, as opposed to attempted and failed.
const feeTransferSkipped = "skipped"

// ValueTransferer moves value between wallets, e.g. the fee rail.
type ValueTransferer interface {
	Transfer(ctx context.Context, payer, destination string, amount decimal.Decimal) (string, error)
	GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// ExecutionVenue prices and executes the underlying swap.
type ExecutionVenue interface {
	GetQuote(ctx context.Context, inputAsset, outputAsset string, amount decimal.Decimal, slippageBps int) (*jupiter.Quote, error)
	Execute(ctx context.Context, payer string, quote *jupiter.Quote) (string, error)
}

// SwapService coordinates a single fee-bearing trade: balance check, fee
// transfer, fresh quote, execution and durable recording, strictly in that
// order. Fee capture is front-loaded before execution.
type SwapService struct {
	db            *gorm.DB
	venue         ExecutionVenue
	transferer    ValueTransferer
	feeBps        int64
	feeWallet     string // fee collection destination; empty skips the fee rail
}

func NewSwapService(db *gorm.DB, venue ExecutionVenue, transferer ValueTransferer, feeBps int64, feeWallet string) *SwapService {
	return &SwapService{
		db:         db,
		venue:      venue,
		transferer: transferer,
		feeBps:     feeBps,
		feeWallet:  feeWallet,
	}
}

// SwapRequest describes one fee-bearing swap
type SwapRequest struct {
	UserID       uint
	WalletID     uint
	PayerAddress string
	InputAsset   string
	OutputAsset  string
	TotalAmount  decimal.Decimal
	SlippageBps  int
}

// SwapResult is returned to the caller and triggers reward distribution.
type SwapResult struct {
	Reference      string          `json:"reference"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	TransactionID  *uint           `json:"transaction_id,omitempty"`
	FeeTransferred bool            `json:"fee_transferred"`
	Warning        string          `json:"warning,omitempty"`
}

// SwapWithFeeDeduction runs the full coordinator flow. Once the balance check
// passes the flow runs to completion or terminal failure; there is no
// cancellation point after it. Only ErrInsufficientBalance, ErrQuoteUnavailable
// and ErrExecutionFailed are surfaced; bookkeeping trouble is absorbed so a
// completed trade never looks failed.
func (s *SwapService) SwapWithFeeDeduction(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	feeAmount, err := CalculateFee(req.TotalAmount, s.feeBps)
	if err != nil {
		return nil, err
	}
	netAmount := req.TotalAmount.Sub(feeAmount)

	// Balance check before any value moves.
	balanceCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	balance, err := s.transferer.GetBalance(balanceCtx, req.PayerAddress)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to read balance for %s: %w", req.PayerAddress, err)
	}
	if balance.LessThan(req.TotalAmount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, req.TotalAmount)
	}

	// Fee transfer. A failure here is logged and the swap continues; the fee
	// record keeps fee_transferred=false so reconciliation can tell charged
	// from captured.
	feeTransferred := false
	feeTransferRef := ""
	if s.feeWallet == "" || !feeAmount.IsPositive() {
		feeTransferRef = feeTransferSkipped
		log.Printf("[SwapService] Fee transfer skipped for user %d (wallet configured: %t, fee: %s)",
			req.UserID, s.feeWallet != "", feeAmount)
	} else {
		ref, err := s.transferer.Transfer(ctx, req.PayerAddress, s.feeWallet, feeAmount)
		if err != nil {
			log.Printf("[SwapService] Fee transfer of %s failed for user %d, continuing with swap: %v",
				feeAmount, req.UserID, err)
		} else {
			feeTransferred = true
			feeTransferRef = ref
		}
	}

	// Fresh quote for the net amount, fetched immediately before execution.
	quote, err := s.venue.GetQuote(ctx, req.InputAsset, req.OutputAsset, netAmount, req.SlippageBps)
	if err != nil {
		if feeTransferred {
			return nil, fmt.Errorf("%w (a fee of %s was already collected): %v", ErrQuoteUnavailable, feeAmount, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	reference, err := s.venue.Execute(ctx, req.PayerAddress, quote)
	if err != nil {
		if feeTransferred {
			return nil, fmt.Errorf("%w (a fee of %s was already collected): %v", ErrExecutionFailed, feeAmount, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	result := &SwapResult{
		Reference:      reference,
		FeeAmount:      feeAmount,
		NetAmount:      netAmount,
		FeeTransferred: feeTransferred,
	}

	// Record the transaction and its fee. Value has moved; recording failures
	// must not make the trade look failed, so fall back to the standalone fee
	// record rather than erroring out.
	txn := models.Transaction{
		UserID:      req.UserID,
		WalletID:    req.WalletID,
		InputAsset:  req.InputAsset,
		OutputAsset: req.OutputAsset,
		TotalAmount: req.TotalAmount,
		NetAmount:   netAmount,
		FeeAmount:   feeAmount,
		Reference:   reference,
		Status:      models.TransactionStatusSuccess,
	}

	var transactionID *uint
	if err := s.db.Create(&txn).Error; err != nil {
		log.Printf("[SwapService] Failed to record transaction for user %d (ref %s): %v", req.UserID, reference, err)
		result.Warning = "transaction history could not be recorded"
	} else {
		transactionID = &txn.ID
		result.TransactionID = transactionID
	}

	feeRecord := models.FeeRecord{
		TransactionID:  transactionID,
		UserID:         req.UserID,
		FeeAmount:      feeAmount,
		FeeType:        models.FeeTypeTrading,
		Asset:          req.InputAsset,
		FeeTransferred: feeTransferred,
		FeeTransferRef: feeTransferRef,
	}
	if err := s.db.Create(&feeRecord).Error; err != nil {
		log.Printf("[SwapService] Failed to record fee of %s for user %d: %v", feeAmount, req.UserID, err)
	}

	if feeTransferred {
		log.Printf("[SwapService] Swap executed for user %d: ref=%s fee=%s net=%s", req.UserID, reference, feeAmount, netAmount)
	} else {
		log.Printf("[SwapService] Swap executed for user %d with uncaptured fee: ref=%s fee=%s net=%s",
			req.UserID, reference, feeAmount, netAmount)
	}

	return result, nil
}

// FailedFeeTransfers lists fees charged in the ledger whose on-chain transfer
// was attempted but did not complete, for out-of-band reconciliation. Fees
// skipped by configuration are not drift and are excluded.
func (s *SwapService) FailedFeeTransfers(limit int) ([]models.FeeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.FeeRecord
	if err := s.db.Where("fee_transferred = ? AND fee_transfer_ref <> ?", false, feeTransferSkipped).
		Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
