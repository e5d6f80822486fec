package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/realtime"
	"trueque-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatService is the negotiation channel: a per-trade message log whose
// write access is gated by the trade being ACCEPTED.
type ChatService struct {
	repo     *repository.Repository
	notifier NotificationSink
	hub      *realtime.Hub
}

func NewChatService(repo *repository.Repository, notifier NotificationSink, hub *realtime.Hub) *ChatService {
	return &ChatService{repo: repo, notifier: notifier, hub: hub}
}

// PostMessage appends a message to an open negotiation. The gate reads the
// trade's state at send time without taking the transition lock: a racing
// terminal transition just fails the send with ChatNotOpen, no retry.
func (cs *ChatService) PostMessage(
	ctx context.Context,
	tradeID uuid.UUID,
	senderID uint,
	body string,
) (*models.TradeMessage, error) {
	trade, err := cs.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	if !trade.IsParty(senderID) {
		return nil, apperrors.NotAuthorized("sender is not a party to trade %s", tradeID)
	}
	if trade.Status != models.TradeStatusAccepted {
		return nil, apperrors.New(apperrors.KindStateConflict, apperrors.CodeChatNotOpen,
			"chat is only open while the trade is accepted (current: %s)", trade.Status)
	}

	now := time.Now()
	msg := &models.TradeMessage{
		ID:        uuid.New(),
		TradeID:   tradeID,
		SenderID:  &senderID,
		Body:      body,
		CreatedAt: now,
	}
	if senderID == trade.ProposerID {
		msg.ReadByProposerAt = &now
	} else {
		msg.ReadByReceiverAt = &now
	}

	if err := cs.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if err := cs.repo.TouchTradeActivity(ctx, tradeID); err != nil {
		log.Printf("[Chat] Failed to bump activity for trade %s: %v", tradeID, err)
	}

	cs.hub.Publish(realtime.Message{
		Topic: realtime.TradeTopic(tradeID),
		Event: realtime.EventChatMessage,
		Data:  msg,
	})
	cs.notifier.Send(ctx, trade.OtherParty(senderID),
		"New message",
		"You received a message in an open negotiation.",
		models.NotificationNewMessage, &tradeID)

	return msg, nil
}

// ListMessages retrieves the negotiation log for a party, arrival order.
func (cs *ChatService) ListMessages(
	ctx context.Context,
	tradeID uuid.UUID,
	callerID uint,
	limit, offset int,
) ([]*models.TradeMessage, error) {
	trade, err := cs.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(callerID) {
		return nil, apperrors.NotAuthorized("caller is not a party to trade %s", tradeID)
	}

	return cs.repo.ListMessages(ctx, tradeID, limit, offset)
}

// MarkRead stamps every unread message in the trade for the reader.
// Idempotent: repeat calls change nothing.
func (cs *ChatService) MarkRead(ctx context.Context, tradeID uuid.UUID, readerID uint) error {
	trade, err := cs.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	if !trade.IsParty(readerID) {
		return apperrors.NotAuthorized("caller is not a party to trade %s", tradeID)
	}

	_, err = cs.repo.MarkMessagesRead(ctx, tradeID, readColumnFor(trade, readerID))
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// UnreadCount counts messages the reader has not yet marked read.
func (cs *ChatService) UnreadCount(ctx context.Context, tradeID uuid.UUID, readerID uint) (int64, error) {
	trade, err := cs.getTrade(ctx, tradeID)
	if err != nil {
		return 0, err
	}
	if !trade.IsParty(readerID) {
		return 0, apperrors.NotAuthorized("caller is not a party to trade %s", tradeID)
	}
	return cs.repo.CountUnreadMessages(ctx, tradeID, readColumnFor(trade, readerID), readerID)
}

func (cs *ChatService) getTrade(ctx context.Context, tradeID uuid.UUID) (*models.TradeProposal, error) {
	trade, err := cs.repo.GetTradeByID(ctx, tradeID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("trade %s not found", tradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}
