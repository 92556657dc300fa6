package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Session is one run of the trading loop, from start to stop.
type Session struct {
	gorm.Model
	UUID           string          `gorm:"uniqueIndex;not null" json:"uuid"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	StartCapital   decimal.Decimal `gorm:"type:text" json:"start_capital"`
	FinalCapital   decimal.Decimal `gorm:"type:text" json:"final_capital"`
	DailyGoal      decimal.Decimal `gorm:"type:text" json:"daily_goal"`
	EarnedToday    decimal.Decimal `gorm:"type:text" json:"earned_today"`
	TradesExecuted int             `json:"trades_executed"`
	StopReason     string          `json:"stop_reason"`
	Error          string          `json:"error,omitempty"`
	DryRun         bool            `json:"dry_run"`
}
