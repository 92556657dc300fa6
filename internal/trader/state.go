package trader

import (
	"github.com/shopspring/decimal"
)

// StopReason tells why a session ended.
type StopReason string

const (
	StopGoalReached        StopReason = "goal_reached"
	StopTradeCapReached    StopReason = "trade_cap_reached"
	StopCancelled          StopReason = "cancelled"
	StopNoTradeableSymbols StopReason = "no_tradeable_symbols"
	StopAborted            StopReason = "aborted"
)

// SessionState is the running account of one session.
type SessionState struct {
	Capital        decimal.Decimal
	EarnedToday    decimal.Decimal
	TradesExecuted int
	DailyGoal      decimal.Decimal
}

// NewSessionState fixes the daily goal from the starting capital.
func NewSessionState(capital, dailyTargetPct decimal.Decimal) SessionState {
	return SessionState{
		Capital:     capital,
		EarnedToday: decimal.Zero,
		DailyGoal:   capital.Mul(dailyTargetPct),
	}
}

// Apply books one completed trade. Losses reduce capital but never the goal
// progress.
func (s *SessionState) Apply(profit decimal.Decimal) {
	s.Capital = s.Capital.Add(profit)
	if profit.IsPositive() {
		s.EarnedToday = s.EarnedToday.Add(profit)
	}
	s.TradesExecuted++
}

// GoalReached reports whether the day's profit target is met.
func (s SessionState) GoalReached() bool {
	return s.EarnedToday.GreaterThanOrEqual(s.DailyGoal)
}

// ShouldContinue reports whether another trade may be attempted, and if not,
// why the session stops.
func (s SessionState) ShouldContinue(tradeCap int) (bool, StopReason) {
	if s.GoalReached() {
		return false, StopGoalReached
	}
	if s.TradesExecuted >= tradeCap {
		return false, StopTradeCapReached
	}
	return true, ""
}
