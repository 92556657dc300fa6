package trader

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidEntryPrice = errors.New("entry price must be positive")
	ErrNegativeAmount    = errors.New("trade amount must not be negative")
	ErrUnknownResult     = errors.New("unknown trade result")
)

// Result is the exit a trade is booked at.
type Result string

const (
	TakeProfit Result = "TakeProfit"
	StopLoss   Result = "StopLoss"
)

// Outcome is the resolved P&L of one trade.
type Outcome struct {
	EntryPrice      decimal.Decimal
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
	Result          Result
	Profit          decimal.Decimal
}

// Resolve books a trade of amount (in the base asset) bought at entryPrice.
//
// The profit is (exitPrice - entryPrice) * amount / entryPrice, which reduces
// to amount*tpPct for a take-profit and -amount*slPct for a stop-loss. The
// reduced form is used so that no division rounding enters the capital.
func Resolve(entryPrice, amount, tpPct, slPct decimal.Decimal, result Result) (Outcome, error) {
	if !entryPrice.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrInvalidEntryPrice, entryPrice)
	}
	if amount.IsNegative() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	out := Outcome{
		EntryPrice:      entryPrice,
		TakeProfitPrice: entryPrice.Mul(decimal.NewFromInt(1).Add(tpPct)),
		StopLossPrice:   entryPrice.Mul(decimal.NewFromInt(1).Sub(slPct)),
		Result:          result,
	}
	switch result {
	case TakeProfit:
		out.Profit = amount.Mul(tpPct)
	case StopLoss:
		out.Profit = amount.Mul(slPct).Neg()
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownResult, result)
	}
	return out, nil
}

// PositionSize is the amount risked on the next trade: fraction of capital,
// never more than capital itself and never negative.
func PositionSize(capital, fraction decimal.Decimal) decimal.Decimal {
	if !capital.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(capital.Mul(fraction), capital)
}
