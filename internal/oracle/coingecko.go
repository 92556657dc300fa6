package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"arbitrum-trade-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	quoteCurrency = "usd"
	apiKeyHeader  = "x-cg-demo-api-key"
)

// ErrMalformedQuote marks a response that parsed but did not carry a usable price.
var ErrMalformedQuote = errors.New("malformed price response")

// FeedClient fetches a single USD price by feed identifier.
type FeedClient interface {
	SimplePrice(ctx context.Context, feedID string) (decimal.Decimal, error)
}

// CoinGeckoClient is a client for the CoinGecko simple price endpoint.
// It implements the FeedClient interface.
type CoinGeckoClient struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure CoinGeckoClient implements the interface
var _ FeedClient = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient creates a new CoinGecko REST client.
func NewCoinGeckoClient(cfg *config.Oracle, logger *zap.Logger) *CoinGeckoClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &CoinGeckoClient{
		client:  client,
		apiKey:  cfg.APIKey,
		logger:  logger.Named("coingecko"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// SimplePrice performs one request for the USD price of feedID. Every error
// it returns is considered transient by the caller.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, feedID string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var body map[string]map[string]decimal.Decimal
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           feedID,
			"vs_currencies": quoteCurrency,
		}).
		SetResult(&body)
	if c.apiKey != "" {
		req.SetHeader(apiKeyHeader, c.apiKey)
	}

	c.logger.Debug("Executing request", zap.String("feed_id", feedID))
	resp, err := req.Get("/simple/price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("price request failed with status %s", resp.Status())
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: unexpected status %d", ErrMalformedQuote, resp.StatusCode())
	}

	quotes, ok := body[feedID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: feed %q missing", ErrMalformedQuote, feedID)
	}
	price, ok := quotes[quoteCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: feed %q has no %s price", ErrMalformedQuote, feedID, quoteCurrency)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s for %q", ErrMalformedQuote, price, feedID)
	}
	return price, nil
}
