package trader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"arbitrum-trade-bot-go/internal/chain"
	"arbitrum-trade-bot-go/internal/config"
	"arbitrum-trade-bot-go/internal/models"
	"arbitrum-trade-bot-go/internal/notify"
	"arbitrum-trade-bot-go/internal/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCancelled is returned by Step when the context is done before the swap
// was committed.
var ErrCancelled = errors.New("session cancelled")

// CapitalStore persists the running capital.
type CapitalStore interface {
	Save(capital decimal.Decimal) error
}

// Journal records sessions and trades. Failures are logged by the engine and
// never change the outcome of a session.
type Journal interface {
	OpenSession(ctx context.Context, s *models.Session) error
	RecordTrade(ctx context.Context, t *models.Trade) error
	CloseSession(ctx context.Context, s *models.Session) error
}

type nopJournal struct{}

func (nopJournal) OpenSession(context.Context, *models.Session) error  { return nil }
func (nopJournal) RecordTrade(context.Context, *models.Trade) error    { return nil }
func (nopJournal) CloseSession(context.Context, *models.Session) error { return nil }

// Dependencies are the collaborators of an Engine. Prices, Executor, Outcomes,
// Store and Symbols are required.
type Dependencies struct {
	Prices     PriceSource
	Executor   chain.Executor
	Outcomes   OutcomeSource
	Store      CapitalStore
	Symbols    []string
	BaseSymbol string

	Notifier notify.Notifier
	Journal  Journal
	Metrics  *Metrics
	Rand     *rand.Rand
	Sleep    oracle.SleepFunc
	Now      func() time.Time
}

// TradeRecord is one completed trade.
type TradeRecord struct {
	Symbol       string
	AmountIn     decimal.Decimal
	Quote        oracle.Quote
	Outcome      Outcome
	CapitalAfter decimal.Decimal
	Receipt      *chain.Receipt
	Timestamp    time.Time
}

// SessionResult summarises a finished session.
type SessionResult struct {
	SessionUUID    string
	StartedAt      time.Time
	FinishedAt     time.Time
	StartCapital   decimal.Decimal
	FinalCapital   decimal.Decimal
	DailyGoal      decimal.Decimal
	EarnedToday    decimal.Decimal
	TradesExecuted int
	StopReason     StopReason
	Trades         []TradeRecord
	Skipped        []string
	DryRun         bool
}

// Engine runs one trading session: pick a token, buy it, book the outcome,
// repeat until the daily goal or the trade cap is reached.
type Engine struct {
	UUID string

	logger     *zap.Logger
	cfg        config.Trading
	prices     PriceSource
	executor   chain.Executor
	outcomes   OutcomeSource
	store      CapitalStore
	journal    Journal
	notifier   notify.Notifier
	metrics    *Metrics
	symbols    []string
	baseSymbol string
	rng        *rand.Rand
	sleep      oracle.SleepFunc
	now        func() time.Time

	mu        sync.RWMutex
	state     SessionState
	startTime time.Time
	started   bool
	running   bool
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg config.Trading, deps Dependencies) (*Engine, error) {
	switch {
	case deps.Prices == nil:
		return nil, errors.New("engine: price source is required")
	case deps.Executor == nil:
		return nil, errors.New("engine: swap executor is required")
	case deps.Outcomes == nil:
		return nil, errors.New("engine: outcome source is required")
	case deps.Store == nil:
		return nil, errors.New("engine: capital store is required")
	case len(deps.Symbols) == 0:
		return nil, errors.New("engine: no tradeable symbols")
	}
	if cfg.MaxTrades < 1 {
		return nil, fmt.Errorf("engine: max trades must be at least 1, got %d", cfg.MaxTrades)
	}

	e := &Engine{
		UUID:       uuid.NewString(),
		logger:     logger.Named("engine"),
		cfg:        cfg,
		prices:     deps.Prices,
		executor:   deps.Executor,
		outcomes:   deps.Outcomes,
		store:      deps.Store,
		journal:    deps.Journal,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		baseSymbol: deps.BaseSymbol,
		rng:        deps.Rand,
		sleep:      deps.Sleep,
		now:        deps.Now,
	}
	e.symbols = append([]string(nil), deps.Symbols...)
	sort.Strings(e.symbols)

	if e.journal == nil {
		e.journal = nopJournal{}
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}
	if e.baseSymbol == "" {
		e.baseSymbol = "USDT"
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.sleep == nil {
		e.sleep = oracle.ContextSleep
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Snapshot returns a consistent copy of the session state.
func (e *Engine) Snapshot() SessionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Run executes the session starting from initialCapital. It returns when the
// goal or the trade cap is reached, when ctx is done (checked between trades),
// when no symbol can be priced, or when a trade fails. In every case the final
// capital is persisted and the SessionResult describes the completed trades. A
// non-nil error means the session was aborted.
func (e *Engine) Run(ctx context.Context, initialCapital decimal.Decimal) (SessionResult, error) {
	if !initialCapital.IsPositive() {
		return SessionResult{}, fmt.Errorf("initial capital must be positive, got %s", initialCapital)
	}

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return SessionResult{}, errors.New("engine: session already run")
	}
	e.started = true
	e.running = true
	e.state = NewSessionState(initialCapital, e.cfg.DailyTargetPct)
	e.startTime = e.now()
	state := e.state
	e.mu.Unlock()

	l := e.logger.With(zap.String("session", e.UUID))
	l.Info("Session started",
		zap.String("capital", state.Capital.String()),
		zap.String("daily_goal", state.DailyGoal.String()),
		zap.Int("max_trades", e.cfg.MaxTrades),
		zap.String("outcome_source", e.outcomes.Name()),
		zap.Bool("dry_run", e.cfg.DryRun),
	)
	e.metrics.observeState(state)

	session := &models.Session{
		UUID:         e.UUID,
		StartedAt:    e.startTime,
		StartCapital: state.Capital,
		DailyGoal:    state.DailyGoal,
		DryRun:       e.cfg.DryRun,
	}
	if err := e.journal.OpenSession(ctx, session); err != nil {
		l.Warn("Failed to journal session start", zap.Error(err))
	}
	e.notifier.Notify(ctx, fmt.Sprintf("Session started: capital $%s, daily goal $%s%s",
		state.Capital.StringFixed(2), state.DailyGoal.StringFixed(2), e.dryRunTag()))

	res := SessionResult{
		SessionUUID:  e.UUID,
		StartedAt:    e.startTime,
		StartCapital: state.Capital,
		DailyGoal:    state.DailyGoal,
		DryRun:       e.cfg.DryRun,
	}
	excluded := make(map[string]bool)
	var runErr error

loop:
	for {
		if ok, reason := e.Snapshot().ShouldContinue(e.cfg.MaxTrades); !ok {
			res.StopReason = reason
			break
		}
		if ctx.Err() != nil {
			res.StopReason = StopCancelled
			break
		}
		symbol, ok := e.pickSymbol(excluded)
		if !ok {
			res.StopReason = StopNoTradeableSymbols
			break
		}

		rec, err := e.Step(ctx, &e.state, symbol)
		switch {
		case err == nil:
			res.Trades = append(res.Trades, *rec)
		case errors.Is(err, oracle.ErrUnsupportedSymbol):
			excluded[symbol] = true
			res.Skipped = append(res.Skipped, symbol)
		case errors.Is(err, ErrCancelled):
			res.StopReason = StopCancelled
			break loop
		default:
			res.StopReason = StopAborted
			runErr = err
			l.Error("Session aborted", zap.String("symbol", symbol), zap.Error(err))
			break loop
		}
	}

	return e.finish(ctx, l, session, res, runErr)
}

// finish persists and reports the final state of a session.
func (e *Engine) finish(ctx context.Context, l *zap.Logger, session *models.Session, res SessionResult, runErr error) (SessionResult, error) {
	ctx = context.WithoutCancel(ctx)

	e.mu.Lock()
	final := e.state
	e.running = false
	e.mu.Unlock()

	res.FinishedAt = e.now()
	res.FinalCapital = final.Capital
	res.EarnedToday = final.EarnedToday
	res.TradesExecuted = final.TradesExecuted

	if err := e.store.Save(final.Capital); err != nil {
		l.Error("Failed to persist final capital", zap.String("capital", final.Capital.String()), zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("failed to persist final capital: %w", err)
		}
	}

	session.FinishedAt = &res.FinishedAt
	session.FinalCapital = final.Capital
	session.EarnedToday = final.EarnedToday
	session.TradesExecuted = final.TradesExecuted
	session.StopReason = string(res.StopReason)
	if runErr != nil {
		session.Error = runErr.Error()
	}
	if err := e.journal.CloseSession(ctx, session); err != nil {
		l.Warn("Failed to journal session end", zap.Error(err))
	}

	l.Info("Session finished",
		zap.String("stop_reason", string(res.StopReason)),
		zap.String("final_capital", final.Capital.String()),
		zap.String("earned_today", final.EarnedToday.String()),
		zap.Int("trades_executed", final.TradesExecuted),
		zap.Strings("skipped", res.Skipped),
	)
	msg := fmt.Sprintf("Session finished (%s): %d trades, earned $%s of $%s goal, capital $%s%s",
		res.StopReason, final.TradesExecuted, final.EarnedToday.StringFixed(2),
		final.DailyGoal.StringFixed(2), final.Capital.StringFixed(2), e.dryRunTag())
	if runErr != nil {
		msg += "\nError: " + runErr.Error()
	}
	e.notifier.Notify(ctx, msg)

	return res, runErr
}

// Step performs one trade of symbol against state. An unsupported symbol
// returns oracle.ErrUnsupportedSymbol and leaves state untouched. Once the
// swap is submitted the remainder of the step ignores cancellation of ctx.
func (e *Engine) Step(ctx context.Context, state *SessionState, symbol string) (*TradeRecord, error) {
	l := e.logger.With(zap.String("session", e.UUID), zap.String("symbol", symbol))
	amount := PositionSize(state.Capital, e.cfg.RiskFraction)

	quote, err := e.prices.Price(ctx, symbol)
	if err != nil {
		if errors.Is(err, oracle.ErrUnsupportedSymbol) {
			e.metrics.observeSkip(symbol)
			l.Warn("Skipping symbol without a price feed", zap.Error(err))
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w before swapping %s: %w", ErrCancelled, symbol, err)
	}

	l.Info("Buying",
		zap.String("amount", amount.String()),
		zap.String("entry_price", quote.Price.String()),
		zap.String("price_source", string(quote.Source)),
	)
	e.notifier.Notify(ctx, fmt.Sprintf("Buying %s with $%s %s at $%s%s",
		symbol, amount.StringFixed(2), e.baseSymbol, quote.Price.StringFixed(2), e.dryRunTag()))

	committed := context.WithoutCancel(ctx)
	receipt, err := e.executor.Swap(committed, chain.SwapRequest{
		Symbol:     symbol,
		AmountIn:   amount,
		EntryPrice: quote.Price,
	})
	if err != nil {
		e.metrics.observeSwapFailure()
		return nil, fmt.Errorf("trade %s: %w", symbol, err)
	}
	_ = e.sleep(committed, e.cfg.SettleDelay)

	result, err := e.outcomes.Decide(committed, OutcomeRequest{
		Symbol:      symbol,
		EntryPrice:  quote.Price,
		EntrySource: quote.Source,
		Receipt:     receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve outcome of %s: %w", symbol, err)
	}
	outcome, err := Resolve(quote.Price, amount, e.cfg.TakeProfitPct, e.cfg.StopLossPct, result)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve outcome of %s: %w", symbol, err)
	}

	e.mu.Lock()
	state.Apply(outcome.Profit)
	after := *state
	e.mu.Unlock()

	rec := &TradeRecord{
		Symbol:       symbol,
		AmountIn:     amount,
		Quote:        quote,
		Outcome:      outcome,
		CapitalAfter: after.Capital,
		Receipt:      receipt,
		Timestamp:    e.now(),
	}
	e.metrics.observeTrade(symbol, result)
	e.metrics.observeState(after)

	l.Info("Trade booked",
		zap.String("result", string(result)),
		zap.String("profit", outcome.Profit.String()),
		zap.String("capital", after.Capital.String()),
		zap.String("earned_today", after.EarnedToday.String()),
		zap.Int("trades_executed", after.TradesExecuted),
		zap.String("tx", receipt.TxHash.Hex()),
	)

	if err := e.store.Save(after.Capital); err != nil {
		l.Warn("Failed to persist capital", zap.Error(err))
	}
	if err := e.journal.RecordTrade(committed, e.tradeModel(rec)); err != nil {
		l.Warn("Failed to journal trade", zap.Error(err))
	}
	e.notifier.Notify(committed, fmt.Sprintf("%s %s, Profit: $%s, Capital: $%s",
		symbol, result, outcome.Profit.StringFixed(2), after.Capital.StringFixed(2)))

	return rec, nil
}

// pickSymbol draws uniformly among symbols not yet excluded.
func (e *Engine) pickSymbol(excluded map[string]bool) (string, bool) {
	candidates := make([]string, 0, len(e.symbols))
	for _, s := range e.symbols {
		if !excluded[s] {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[e.rng.Intn(len(candidates))], true
}

func (e *Engine) tradeModel(rec *TradeRecord) *models.Trade {
	t := &models.Trade{
		SessionUUID:     e.UUID,
		Symbol:          rec.Symbol,
		Type:            "BUY",
		AmountIn:        rec.AmountIn,
		EntryPrice:      rec.Outcome.EntryPrice,
		PriceSource:     string(rec.Quote.Source),
		TakeProfitPrice: rec.Outcome.TakeProfitPrice,
		StopLossPrice:   rec.Outcome.StopLossPrice,
		Result:          string(rec.Outcome.Result),
		Profit:          rec.Outcome.Profit,
		CapitalAfter:    rec.CapitalAfter,
		IsSimulation:    rec.Receipt.Simulated,
		Timestamp:       rec.Timestamp.UnixMilli(),
	}
	t.TxHash = rec.Receipt.TxHash.Hex()
	if rec.Receipt.ApproveTxHash != (common.Hash{}) {
		t.ApproveTxHash = rec.Receipt.ApproveTxHash.Hex()
	}
	return t
}

func (e *Engine) dryRunTag() string {
	if e.cfg.DryRun {
		return " [dry run]"
	}
	return ""
}
