package trader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"arbitrum-trade-bot-go/internal/chain"
	"arbitrum-trade-bot-go/internal/oracle"
	"github.com/shopspring/decimal"
)

// ErrNoMarketPrice is returned by MarketOutcome when either side of the
// comparison would come from the static fallback table.
var ErrNoMarketPrice = errors.New("no live market price")

// OutcomeRequest is what an OutcomeSource knows about a settled trade.
type OutcomeRequest struct {
	Symbol      string
	EntryPrice  decimal.Decimal
	EntrySource oracle.Source
	Receipt     *chain.Receipt
}

// OutcomeSource decides whether a trade is booked as a take-profit or a
// stop-loss. The engine calls it once per trade, after the settle delay.
type OutcomeSource interface {
	// Name returns the unique name of the source.
	Name() string

	// Decide returns the result for a settled trade. An error aborts the session.
	Decide(ctx context.Context, req OutcomeRequest) (Result, error)
}

// PriceSource is the oracle as seen by the engine.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (oracle.Quote, error)
}

const (
	OutcomeRandom = "random"
	OutcomeMarket = "market"
)

// NewOutcomeSource builds the source selected by name.
func NewOutcomeSource(name string, winProbability float64, prices PriceSource, rng *rand.Rand) (OutcomeSource, error) {
	switch name {
	case "", OutcomeRandom:
		return NewWeightedRandom(winProbability, rng), nil
	case OutcomeMarket:
		return NewMarketOutcome(prices), nil
	default:
		return nil, fmt.Errorf("unknown outcome source %q", name)
	}
}

// WeightedRandom draws TakeProfit with a fixed probability. It has no view of
// the market at all.
type WeightedRandom struct {
	winProbability float64
	rng            *rand.Rand
}

func NewWeightedRandom(winProbability float64, rng *rand.Rand) *WeightedRandom {
	return &WeightedRandom{winProbability: winProbability, rng: rng}
}

func (w *WeightedRandom) Name() string { return OutcomeRandom }

func (w *WeightedRandom) Decide(context.Context, OutcomeRequest) (Result, error) {
	if w.rng.Float64() < w.winProbability {
		return TakeProfit, nil
	}
	return StopLoss, nil
}

// MarketOutcome re-prices the token after settlement and books a take-profit
// when the price has not fallen below entry. Both prices must be live quotes.
type MarketOutcome struct {
	prices PriceSource
}

func NewMarketOutcome(prices PriceSource) *MarketOutcome {
	return &MarketOutcome{prices: prices}
}

func (m *MarketOutcome) Name() string { return OutcomeMarket }

func (m *MarketOutcome) Decide(ctx context.Context, req OutcomeRequest) (Result, error) {
	if req.EntrySource == oracle.SourceFallback {
		return "", fmt.Errorf("%w: entry price of %s came from the fallback table", ErrNoMarketPrice, req.Symbol)
	}
	quote, err := m.prices.Price(ctx, req.Symbol)
	if err != nil {
		return "", fmt.Errorf("failed to re-price %s: %w", req.Symbol, err)
	}
	if quote.Source != oracle.SourceLive {
		return "", fmt.Errorf("%w: re-price of %s was a %s quote", ErrNoMarketPrice, req.Symbol, quote.Source)
	}
	if quote.Price.GreaterThanOrEqual(req.EntryPrice) {
		return TakeProfit, nil
	}
	return StopLoss, nil
}
