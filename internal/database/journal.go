package database

import (
	"context"
	"fmt"

	"arbitrum-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

// GormJournal stores sessions and trades with gorm.
type GormJournal struct {
	db *gorm.DB
}

// NewGormJournal wraps an opened and migrated database.
func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db}
}

// OpenSession inserts the session row.
func (j *GormJournal) OpenSession(ctx context.Context, s *models.Session) error {
	if err := j.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to open session %s: %w", s.UUID, err)
	}
	return nil
}

// RecordTrade inserts one completed trade.
func (j *GormJournal) RecordTrade(ctx context.Context, t *models.Trade) error {
	if err := j.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to record trade for session %s: %w", t.SessionUUID, err)
	}
	return nil
}

// CloseSession writes the final totals and stop reason of a session opened
// with OpenSession.
func (j *GormJournal) CloseSession(ctx context.Context, s *models.Session) error {
	res := j.db.WithContext(ctx).Model(&models.Session{}).Where("uuid = ?", s.UUID).Updates(map[string]any{
		"finished_at":     s.FinishedAt,
		"final_capital":   s.FinalCapital,
		"earned_today":    s.EarnedToday,
		"trades_executed": s.TradesExecuted,
		"stop_reason":     s.StopReason,
		"error":           s.Error,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to close session %s: %w", s.UUID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to close session %s: %w", s.UUID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Trades returns up to limit trades, newest first. A limit of zero or less
// returns every trade.
func (j *GormJournal) Trades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	q := j.db.WithContext(ctx).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// Sessions returns up to limit sessions, newest first.
func (j *GormJournal) Sessions(ctx context.Context, limit int) ([]models.Session, error) {
	var sessions []models.Session
	q := j.db.WithContext(ctx).Order("started_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// NopJournal discards everything. It is used when journaling is disabled.
type NopJournal struct{}

func (NopJournal) OpenSession(context.Context, *models.Session) error  { return nil }
func (NopJournal) RecordTrade(context.Context, *models.Trade) error    { return nil }
func (NopJournal) CloseSession(context.Context, *models.Session) error { return nil }
