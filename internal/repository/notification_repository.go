package repository

import (
	"context"
	"time"

	"trueque-market/internal/models"

	"github.com/google/uuid"
)

// CreateNotification stores a notification row
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListNotifications retrieves a user's notifications, newest first
func (r *Repository) ListNotifications(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var notifications []*models.Notification
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkNotificationRead stamps a notification as read; scoped to the owner so
// users cannot touch others' rows.
func (r *Repository) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now())
	return result.RowsAffected, result.Error
}
