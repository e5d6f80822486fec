package services

import (
	"context"
	"log"
	"time"

	"trueque-market/internal/models"
	"trueque-market/internal/realtime"
	"trueque-market/internal/repository"

	"github.com/google/uuid"
)

// NotificationSink receives lifecycle events for real-time push. Fire and
// forget: implementations log failures and never propagate them into the
// transition that triggered the event.
type NotificationSink interface {
	Send(ctx context.Context, userID uint, title, body, notificationType string, referenceID *uuid.UUID)
}

// NotificationService stores notifications and pushes them to the user's
// realtime topic. The stored row is the system of record; the push is a hint.
type NotificationService struct {
	repo *repository.Repository
	hub  *realtime.Hub
}

func NewNotificationService(repo *repository.Repository, hub *realtime.Hub) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

// Send records and pushes a notification. Errors are logged, not returned.
func (ns *NotificationService) Send(
	ctx context.Context,
	userID uint,
	title, body, notificationType string,
	referenceID *uuid.UUID,
) {
	notification := &models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        notificationType,
		Title:       title,
		Body:        body,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}

	if err := ns.repo.CreateNotification(ctx, notification); err != nil {
		log.Printf("[Notifications] Failed to store notification for user %d: %v", userID, err)
		return
	}

	ns.hub.Publish(realtime.Message{
		Topic: realtime.UserTopic(userID),
		Event: realtime.EventNotification,
		Data:  notification,
	})
}

// ListNotifications retrieves a user's notifications with pagination
func (ns *NotificationService) ListNotifications(
	ctx context.Context,
	userID uint,
	limit, offset int,
) ([]*models.Notification, int64, error) {
	return ns.repo.ListNotifications(ctx, userID, limit, offset)
}

// MarkRead stamps one notification read; idempotent.
func (ns *NotificationService) MarkRead(ctx context.Context, notificationID uuid.UUID, userID uint) error {
	_, err := ns.repo.MarkNotificationRead(ctx, notificationID, userID)
	return err
}
