package trader

import (
	"context"
	"sync"

	"arbitrum-trade-bot-go/internal/chain"
	"arbitrum-trade-bot-go/internal/models"
	"arbitrum-trade-bot-go/internal/oracle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPriceSource is a mock implementation of PriceSource.
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) Price(ctx context.Context, symbol string) (oracle.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(oracle.Quote), args.Error(1)
}

// MockExecutor is a mock implementation of chain.Executor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Swap(ctx context.Context, req chain.SwapRequest) (*chain.Receipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*chain.Receipt)
	return receipt, args.Error(1)
}

// scriptedOutcomes replays results in order and then repeats the last one.
type scriptedOutcomes struct {
	results []Result
	calls   int
}

func (s *scriptedOutcomes) Name() string { return "scripted" }

func (s *scriptedOutcomes) Decide(context.Context, OutcomeRequest) (Result, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i], nil
}

func always(r Result) *scriptedOutcomes {
	return &scriptedOutcomes{results: []Result{r}}
}

type memStore struct {
	saves []decimal.Decimal
	err   error
}

func (m *memStore) Save(capital decimal.Decimal) error {
	m.saves = append(m.saves, capital)
	return m.err
}

func (m *memStore) last() decimal.Decimal {
	if len(m.saves) == 0 {
		return decimal.Zero
	}
	return m.saves[len(m.saves)-1]
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

type recordingJournal struct {
	opened *models.Session
	closed *models.Session
	trades []*models.Trade
	err    error
}

func (j *recordingJournal) OpenSession(_ context.Context, s *models.Session) error {
	copied := *s
	j.opened = &copied
	return j.err
}

func (j *recordingJournal) RecordTrade(_ context.Context, t *models.Trade) error {
	j.trades = append(j.trades, t)
	return j.err
}

func (j *recordingJournal) CloseSession(_ context.Context, s *models.Session) error {
	copied := *s
	j.closed = &copied
	return j.err
}

// fixedPrices quotes every symbol in prices and rejects the rest.
type fixedPrices map[string]decimal.Decimal

func (f fixedPrices) Price(_ context.Context, symbol string) (oracle.Quote, error) {
	p, ok := f[symbol]
	if !ok {
		return oracle.Quote{}, oracle.ErrUnsupportedSymbol
	}
	return oracle.Quote{Symbol: symbol, Price: p, Source: oracle.SourceLive, Attempts: 1}, nil
}
