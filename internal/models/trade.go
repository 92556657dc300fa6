package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade represents a completed trade record in the database.
type Trade struct {
	gorm.Model
	SessionUUID     string          `gorm:"index" json:"session_uuid"`
	Symbol          string          `json:"symbol"`
	Type            string          `json:"type"` // always "BUY"
	AmountIn        decimal.Decimal `gorm:"type:text" json:"amount_in"`
	EntryPrice      decimal.Decimal `gorm:"type:text" json:"entry_price"`
	PriceSource     string          `json:"price_source"` // "live" or "fallback"
	TakeProfitPrice decimal.Decimal `gorm:"type:text" json:"take_profit_price"`
	StopLossPrice   decimal.Decimal `gorm:"type:text" json:"stop_loss_price"`
	Result          string          `json:"result"`
	Profit          decimal.Decimal `gorm:"type:text" json:"profit"`
	CapitalAfter    decimal.Decimal `gorm:"type:text" json:"capital_after"`
	TxHash          string          `json:"tx_hash"`
	ApproveTxHash   string          `json:"approve_tx_hash,omitempty"`
	IsSimulation    bool            `json:"is_simulation"`
	Timestamp       int64           `gorm:"index" json:"timestamp"` // unix milliseconds
}
