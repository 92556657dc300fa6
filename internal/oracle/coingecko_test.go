package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arbitrum-trade-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a CoinGeckoClient configured to use it.
func setupTestServer(handler http.Handler) (*CoinGeckoClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	c := &CoinGeckoClient{
		client:  client,
		apiKey:  "test_api_key",
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return c, server
}

func jsonHandler(t *testing.T, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "arbitrum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "test_api_key", r.Header.Get(apiKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestSimplePrice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusOK, `{"arbitrum":{"usd":0.7312}}`))
		defer server.Close()

		price, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.NoError(t, err)
		assert.Equal(t, "0.7312", price.String())
	})

	t.Run("APIError", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusTooManyRequests, `{"status":{"error_code":429}}`))
		defer server.Close()

		_, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("MissingFeed", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusOK, `{}`))
		defer server.Close()

		_, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.ErrorIs(t, err, ErrMalformedQuote)
	})

	t.Run("MissingCurrency", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusOK, `{"arbitrum":{"eur":0.7}}`))
		defer server.Close()

		_, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.ErrorIs(t, err, ErrMalformedQuote)
	})

	t.Run("ZeroPrice", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusOK, `{"arbitrum":{"usd":0}}`))
		defer server.Close()

		_, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.ErrorIs(t, err, ErrMalformedQuote)
	})

	t.Run("GarbageBody", func(t *testing.T) {
		c, server := setupTestServer(jsonHandler(t, http.StatusOK, `<html>`))
		defer server.Close()

		_, err := c.SimplePrice(context.Background(), "arbitrum")

		assert.Error(t, err)
	})
}

func TestNewCoinGeckoClient(t *testing.T) {
	cfg := &config.Oracle{BaseURL: "https://api.coingecko.com/api/v3", APIKey: "k", Timeout: time.Second}
	c := NewCoinGeckoClient(cfg, zap.NewNop())
	assert.NotNil(t, c)
	assert.Equal(t, "k", c.apiKey)
	assert.Equal(t, rate.Inf, c.limiter.Limit())
	assert.Equal(t, 1, c.limiter.Burst())

	cfg.RateLimit = 0.5
	cfg.RateLimitBurst = 2
	c = NewCoinGeckoClient(cfg, zap.NewNop())
	assert.Equal(t, rate.Limit(0.5), c.limiter.Limit())
	assert.Equal(t, 2, c.limiter.Burst())
}
