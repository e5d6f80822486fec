package repository

import (
	"context"
	"time"

	"trueque-market/internal/models"

	"github.com/google/uuid"
)

// CreateMessage appends a message to a trade's negotiation log
func (r *Repository) CreateMessage(ctx context.Context, msg *models.TradeMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages retrieves a trade's messages in arrival order
func (r *Repository) ListMessages(ctx context.Context, tradeID uuid.UUID, limit, offset int) ([]*models.TradeMessage, error) {
	var messages []*models.TradeMessage
	err := r.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessagesRead stamps the reader's read marker on every message of the
// trade that doesn't carry it yet. Idempotent: already-read rows are skipped
// by the IS NULL guard.
func (r *Repository) MarkMessagesRead(ctx context.Context, tradeID uuid.UUID, readColumn string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TradeMessage{}).
		Where("trade_id = ? AND "+readColumn+" IS NULL", tradeID).
		Update(readColumn, time.Now())
	return result.RowsAffected, result.Error
}

// CountUnreadMessages counts messages the reader hasn't marked read, excluding
// their own posts.
func (r *Repository) CountUnreadMessages(ctx context.Context, tradeID uuid.UUID, readColumn string, readerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TradeMessage{}).
		Where("trade_id = ? AND "+readColumn+" IS NULL AND (sender_id IS NULL OR sender_id != ?)",
			tradeID, readerID).
		Count(&count).Error
	return count, err
}
