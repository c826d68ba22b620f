package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BpsDenominator is the basis-point scale: 100 bps = 1%.
const BpsDenominator = 10000

// CalculateFee returns amount × feeBasisPoints / 10000. Pure; the only error
// condition is a negative amount or rate.
func CalculateFee(amount decimal.Decimal, feeBasisPoints int64) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("fee amount cannot be negative: %s", amount)
	}
	if feeBasisPoints < 0 {
		return decimal.Zero, fmt.Errorf("fee basis points cannot be negative: %d", feeBasisPoints)
	}

	return amount.Mul(decimal.NewFromInt(feeBasisPoints)).Div(decimal.NewFromInt(BpsDenominator)), nil
}
