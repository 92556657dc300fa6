// Package oracle resolves USD token prices from an external quote service
// with bounded retries and a static fallback table.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"arbitrum-trade-bot-go/internal/tokens"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnsupportedSymbol is the only error Price returns. The session treats it
// as skip-not-abort.
var ErrUnsupportedSymbol = errors.New("symbol not supported by price feed")

// Source tells whether a quote came from the feed or the fallback table.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Quote is a resolved price.
type Quote struct {
	Symbol   string
	Price    decimal.Decimal
	Source   Source
	Attempts int
}

// FallbackObserver is notified whenever a fallback price is served.
type FallbackObserver func(symbol string)

// PriceOracle combines a FeedClient, the token registry and a retry policy.
type PriceOracle struct {
	feed       FeedClient
	registry   *tokens.Registry
	policy     RetryPolicy
	logger     *zap.Logger
	onFallback FallbackObserver
}

// NewPriceOracle creates a PriceOracle.
func NewPriceOracle(feed FeedClient, registry *tokens.Registry, policy RetryPolicy, logger *zap.Logger) *PriceOracle {
	return &PriceOracle{
		feed:     feed,
		registry: registry,
		policy:   policy,
		logger:   logger.Named("oracle"),
	}
}

// OnFallback registers an observer for fallback quotes.
func (o *PriceOracle) OnFallback(fn FallbackObserver) {
	o.onFallback = fn
}

// Price returns the current USD price of symbol. Feed failures are absorbed:
// after the retry budget is spent the registry's fallback price is returned.
// A fallback served because ctx was done is not reported to the observer.
func (o *PriceOracle) Price(ctx context.Context, symbol string) (Quote, error) {
	token, err := o.registry.Lookup(symbol)
	if err != nil || !token.Priced() {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	price, attempts, err := FetchWithRetry(ctx, o.policy, func(ctx context.Context, attempt int) (decimal.Decimal, error) {
		p, err := o.feed.SimplePrice(ctx, token.FeedID)
		if err != nil {
			o.logger.Warn("Price fetch failed",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return p, err
	})
	if err != nil {
		q := Quote{Symbol: symbol, Price: token.FallbackPrice, Source: SourceFallback, Attempts: attempts}
		if ctx.Err() != nil {
			// the caller is going away and will not trade on this quote
			o.logger.Debug("Price fetch abandoned", zap.String("symbol", symbol), zap.Error(err))
			return q, nil
		}
		o.logger.Warn("Using fallback price",
			zap.String("symbol", symbol),
			zap.String("price", token.FallbackPrice.String()),
			zap.Error(err),
		)
		if o.onFallback != nil {
			o.onFallback(symbol)
		}
		return q, nil
	}
	return Quote{Symbol: symbol, Price: price, Source: SourceLive, Attempts: attempts}, nil
}
