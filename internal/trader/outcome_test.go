package trader

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tp = decimal.RequireFromString("0.25")
	sl = decimal.RequireFromString("0.05")
)

func TestResolve(t *testing.T) {
	entry := decimal.NewFromInt(100)
	amount := decimal.NewFromInt(10)

	win, err := Resolve(entry, amount, tp, sl, TakeProfit)
	require.NoError(t, err)
	assert.Equal(t, "2.5", win.Profit.String())
	assert.Equal(t, "125", win.TakeProfitPrice.String())
	assert.Equal(t, "95", win.StopLossPrice.String())
	assert.Equal(t, TakeProfit, win.Result)

	loss, err := Resolve(entry, amount, tp, sl, StopLoss)
	require.NoError(t, err)
	assert.Equal(t, "-0.5", loss.Profit.String())
	assert.Equal(t, StopLoss, loss.Result)
}

func TestResolve_MatchesPriceFormula(t *testing.T) {
	entry := decimal.RequireFromString("0.8")
	amount := decimal.NewFromInt(10)

	out, err := Resolve(entry, amount, tp, sl, TakeProfit)
	require.NoError(t, err)
	viaPrices := out.TakeProfitPrice.Sub(entry).Mul(amount).Div(entry)
	assert.True(t, viaPrices.Equal(out.Profit), "%s != %s", viaPrices, out.Profit)

	out, err = Resolve(entry, amount, tp, sl, StopLoss)
	require.NoError(t, err)
	viaPrices = out.StopLossPrice.Sub(entry).Mul(amount).Div(entry)
	assert.True(t, viaPrices.Equal(out.Profit), "%s != %s", viaPrices, out.Profit)
}

func TestResolve_Errors(t *testing.T) {
	amount := decimal.NewFromInt(10)

	_, err := Resolve(decimal.Zero, amount, tp, sl, TakeProfit)
	assert.ErrorIs(t, err, ErrInvalidEntryPrice)

	_, err = Resolve(decimal.NewFromInt(-1), amount, tp, sl, TakeProfit)
	assert.ErrorIs(t, err, ErrInvalidEntryPrice)

	_, err = Resolve(decimal.NewFromInt(1), decimal.NewFromInt(-1), tp, sl, TakeProfit)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Resolve(decimal.NewFromInt(1), amount, tp, sl, Result("Breakeven"))
	assert.ErrorIs(t, err, ErrUnknownResult)

	out, err := Resolve(decimal.NewFromInt(1), decimal.Zero, tp, sl, StopLoss)
	require.NoError(t, err)
	assert.True(t, out.Profit.IsZero())
}

func TestPositionSize(t *testing.T) {
	fraction := decimal.RequireFromString("0.2")

	assert.Equal(t, "10", PositionSize(decimal.NewFromInt(50), fraction).String())
	assert.Equal(t, "3", PositionSize(decimal.NewFromInt(3), decimal.NewFromInt(1)).String())
	assert.Equal(t, "3", PositionSize(decimal.NewFromInt(3), decimal.NewFromInt(2)).String())
	assert.True(t, PositionSize(decimal.Zero, fraction).IsZero())
	assert.True(t, PositionSize(decimal.NewFromInt(-5), fraction).IsZero())
}

func TestProperty_ResolverProfit(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("take-profit earns amount*tp, stop-loss loses amount*sl", prop.ForAll(
		func(entryCents, amountCents, tpBps, slBps int64) bool {
			entry := decimal.New(entryCents, -2)
			amount := decimal.New(amountCents, -2)
			tpPct := decimal.New(tpBps, -4)
			slPct := decimal.New(slBps, -4)

			win, err := Resolve(entry, amount, tpPct, slPct, TakeProfit)
			if err != nil || !win.Profit.Equal(amount.Mul(tpPct)) {
				return false
			}
			loss, err := Resolve(entry, amount, tpPct, slPct, StopLoss)
			if err != nil || !loss.Profit.Equal(amount.Mul(slPct).Neg()) {
				return false
			}
			return !win.Profit.IsNegative() && !loss.Profit.IsPositive() &&
				win.TakeProfitPrice.GreaterThanOrEqual(entry) && loss.StopLossPrice.LessThanOrEqual(entry)
		},
		gen.Int64Range(1, 10_000_000),
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(0, 10_000),
		gen.Int64Range(0, 9_999),
	))

	properties.TestingRun(t)
}

func TestProperty_PositionSizeNeverExceedsCapital(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("0 <= size <= capital", prop.ForAll(
		func(capitalCents, fractionBps int64) bool {
			capital := decimal.New(capitalCents, -2)
			size := PositionSize(capital, decimal.New(fractionBps, -4))
			return !size.IsNegative() && size.LessThanOrEqual(capital)
		},
		gen.Int64Range(1, 1_000_000_000),
		gen.Int64Range(1, 50_000),
	))

	properties.TestingRun(t)
}
