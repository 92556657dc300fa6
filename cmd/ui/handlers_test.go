package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"arbitrum-trade-bot-go/internal/database"
	"arbitrum-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupHandler(t *testing.T) (*APIHandler, *http.ServeMux) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	journal := database.NewGormJournal(db)
	ctx := context.Background()

	trades := []models.Trade{
		{Symbol: "ARB", Profit: decimal.RequireFromString("2.5"), Result: "TakeProfit", Timestamp: testNow.Add(-48 * time.Hour).UnixMilli()},
		{Symbol: "GMX", Profit: decimal.RequireFromString("-0.5"), Result: "StopLoss", Timestamp: testNow.Add(-2 * time.Hour).UnixMilli()},
		{Symbol: "MAGIC", Profit: decimal.RequireFromString("2.625"), Result: "TakeProfit", Timestamp: testNow.Add(-time.Hour).UnixMilli()},
	}
	for i := range trades {
		require.NoError(t, journal.RecordTrade(ctx, &trades[i]))
	}
	require.NoError(t, journal.OpenSession(ctx, &models.Session{UUID: "s1", StartedAt: testNow.Add(-time.Hour)}))

	h := NewAPIHandler(zap.NewNop(), journal)
	h.now = func() time.Time { return testNow }
	mux := http.NewServeMux()
	h.Routes(mux)
	return h, mux
}

func get(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTradesHandler(t *testing.T) {
	_, mux := setupHandler(t)

	rec := get(t, mux, "/api/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var trades []models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 3)
	assert.Equal(t, "MAGIC", trades[0].Symbol, "newest first")
	assert.Equal(t, "2.625", trades[0].Profit.String())

	rec = get(t, mux, "/api/trades?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 1)

	rec = get(t, mux, "/api/trades?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsHandler(t *testing.T) {
	_, mux := setupHandler(t)

	rec := get(t, mux, "/api/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	assert.Equal(t, int64(3), stats.AllTime.TotalTrades)
	assert.Equal(t, int64(2), stats.AllTime.ProfitableTrades)
	assert.InDelta(t, 2.0/3.0, stats.AllTime.WinRate, 1e-9)
	assert.Equal(t, "4.625", stats.AllTime.TotalProfit.String())

	assert.Equal(t, int64(2), stats.Since24h.TotalTrades)
	assert.Equal(t, int64(1), stats.Since24h.ProfitableTrades)
	assert.InDelta(t, 0.5, stats.Since24h.WinRate, 1e-9)
	assert.Equal(t, "2.125", stats.Since24h.TotalProfit.String())
}

func TestSessionsHandler(t *testing.T) {
	_, mux := setupHandler(t)

	rec := get(t, mux, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].UUID)
}

type brokenJournal struct{}

func (brokenJournal) Trades(context.Context, int) ([]models.Trade, error) {
	return nil, errors.New("database is locked")
}

func (brokenJournal) Sessions(context.Context, int) ([]models.Session, error) {
	return nil, errors.New("database is locked")
}

func TestHandlers_DatabaseError(t *testing.T) {
	mux := http.NewServeMux()
	NewAPIHandler(zap.NewNop(), brokenJournal{}).Routes(mux)

	for _, path := range []string{"/api/trades", "/api/statistics", "/api/sessions"} {
		assert.Equal(t, http.StatusInternalServerError, get(t, mux, path).Code, path)
	}
}
