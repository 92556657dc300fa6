// Package report writes the machine-readable result of a session for
// whatever scheduled the run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"arbitrum-trade-bot-go/internal/trader"
	"github.com/shopspring/decimal"
)

// Summary is the final state of one session.
type Summary struct {
	SessionUUID    string          `json:"session_uuid"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	StartCapital   decimal.Decimal `json:"start_capital"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
	DailyGoal      decimal.Decimal `json:"daily_goal"`
	EarnedToday    decimal.Decimal `json:"earned_today"`
	TradesExecuted int             `json:"trades_executed"`
	StopReason     string          `json:"stop_reason"`
	Skipped        []string        `json:"skipped,omitempty"`
	DryRun         bool            `json:"dry_run"`
	Error          string          `json:"error,omitempty"`
}

// FromResult builds a Summary. runErr is the error returned alongside res.
func FromResult(res trader.SessionResult, runErr error) Summary {
	s := Summary{
		SessionUUID:    res.SessionUUID,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		StartCapital:   res.StartCapital,
		FinalCapital:   res.FinalCapital,
		DailyGoal:      res.DailyGoal,
		EarnedToday:    res.EarnedToday,
		TradesExecuted: res.TradesExecuted,
		StopReason:     string(res.StopReason),
		Skipped:        res.Skipped,
		DryRun:         res.DryRun,
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}

// WriteJSON writes s as a single JSON line.
func WriteJSON(w io.Writer, s Summary) error {
	return json.NewEncoder(w).Encode(s)
}

// AppendStepOutput appends key=value lines to a pipeline step-output file.
// An empty path is a no-op.
func AppendStepOutput(path string, s Summary) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open step output %s: %w", path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "final_capital=%s\ntrades_executed=%d\nstop_reason=%s\n",
		s.FinalCapital.String(), s.TradesExecuted, s.StopReason)
	if err != nil {
		return fmt.Errorf("failed to write step output %s: %w", path, err)
	}
	return nil
}
