package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RejectTrade rejects a pending proposal. Receiver only.
func (ts *TradeService) RejectTrade(ctx context.Context, receiverID uint, tradeID uuid.UUID) error {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	if trade.ReceiverID != receiverID {
		return apperrors.NotAuthorized("only the receiver can reject a proposal")
	}

	rows, err := ts.repo.TransitionTrade(ctx, tradeID,
		models.TradeStatusPending, models.TradeStatusRejected,
		map[string]interface{}{
			"closure_reason": models.ClosureRejectedByReceiver,
			"closed_at":      time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to reject trade: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidStateTransition(
			"cannot reject a trade in status %s", trade.Status)
	}

	ts.releaseHolds(ctx, trade)
	if updated, err := ts.getTrade(ctx, tradeID); err == nil {
		trade = updated
	}
	ts.appendSystemMessage(ctx, trade, "negotiation closed: rejected")
	ts.notifier.Send(ctx, trade.ProposerID,
		"Trade rejected",
		"Your proposal was rejected.",
		models.NotificationTradeRejected, &trade.ID)
	ts.publishTradeEvent(trade)

	log.Printf("[Trades] Proposal %s rejected by receiver %d", tradeID, receiverID)

	return nil
}

// CancelTrade cancels a proposal. Either party may cancel while it is pending
// or accepted; cancelling an accepted trade releases both garment holds in
// the same transaction.
func (ts *TradeService) CancelTrade(ctx context.Context, callerID uint, tradeID uuid.UUID) error {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	if !trade.IsParty(callerID) {
		return apperrors.NotAuthorized("only trade parties can cancel")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"closure_reason": models.ClosureCancelledByParty,
		"closed_at":      now,
	}

	switch trade.Status {
	case models.TradeStatusPending:
		rows, err := ts.repo.TransitionTrade(ctx, tradeID,
			models.TradeStatusPending, models.TradeStatusCancelled, updates)
		if err != nil {
			return fmt.Errorf("failed to cancel trade: %w", err)
		}
		if rows == 0 {
			return apperrors.InvalidStateTransition("trade %s is no longer pending", tradeID)
		}

	case models.TradeStatusAccepted:
		err = ts.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txRepo := ts.repo.WithTx(tx)
			txLedger := ts.ledger.WithTx(tx)

			rows, err := txRepo.TransitionTrade(ctx, tradeID,
				models.TradeStatusAccepted, models.TradeStatusCancelled, updates)
			if err != nil {
				return fmt.Errorf("failed to cancel trade: %w", err)
			}
			if rows == 0 {
				return apperrors.InvalidStateTransition("trade %s is no longer accepted", tradeID)
			}

			for _, garmentID := range []uint{trade.OfferedGarmentID, trade.RequestedGarmentID} {
				if err := txLedger.Release(ctx, garmentID, tradeID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

	default:
		return apperrors.InvalidStateTransition(
			"cannot cancel a trade in status %s", trade.Status)
	}

	if updated, err := ts.getTrade(ctx, tradeID); err == nil {
		trade = updated
	}
	ts.appendSystemMessage(ctx, trade, "negotiation closed: cancelled")
	ts.notifier.Send(ctx, trade.OtherParty(callerID),
		"Trade cancelled",
		"The other party cancelled the trade.",
		models.NotificationTradeCancelled, &trade.ID)
	ts.publishTradeEvent(trade)

	log.Printf("[Trades] Proposal %s cancelled by user %d", tradeID, callerID)

	return nil
}

// CompleteTrade confirms the physical swap. The first party's call records
// their confirmation (idempotently); the second commits ACCEPTED->COMPLETED
// and flips both garments to SWAPPED in one transaction.
func (ts *TradeService) CompleteTrade(ctx context.Context, callerID uint, tradeID uuid.UUID) (*models.TradeProposal, error) {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	if !trade.IsParty(callerID) {
		return nil, apperrors.NotAuthorized("only trade parties can complete")
	}
	if trade.Status != models.TradeStatusAccepted {
		return nil, apperrors.InvalidStateTransition(
			"cannot complete a trade in status %s", trade.Status)
	}

	column := "proposer_confirmed"
	if callerID == trade.ReceiverID {
		column = "receiver_confirmed"
	}

	rows, err := ts.repo.SetConfirmation(ctx, tradeID, column)
	if err != nil {
		return nil, fmt.Errorf("failed to record confirmation: %w", err)
	}
	if rows == 0 {
		return nil, apperrors.InvalidStateTransition("trade %s is no longer accepted", tradeID)
	}

	// Decide from the stored flags, not the copy loaded before the write.
	// Two parties confirming at once would otherwise each see the other
	// unconfirmed and leave the trade stuck in ACCEPTED.
	trade, err = ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status == models.TradeStatusCompleted {
		return trade, nil
	}
	if !trade.ProposerConfirmed || !trade.ReceiverConfirmed {
		log.Printf("[Trades] Proposal %s: completion confirmed by user %d, waiting for counterparty", tradeID, callerID)
		return trade, nil
	}

	err = ts.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := ts.repo.WithTx(tx)
		txLedger := ts.ledger.WithTx(tx)

		rows, err := txRepo.TransitionTrade(ctx, tradeID,
			models.TradeStatusAccepted, models.TradeStatusCompleted,
			map[string]interface{}{
				"closure_reason": models.ClosureCompleted,
				"closed_at":      time.Now(),
			})
		if err != nil {
			return fmt.Errorf("failed to complete trade: %w", err)
		}
		if rows == 0 {
			return apperrors.InvalidStateTransition("trade %s is no longer accepted", tradeID)
		}

		for _, garmentID := range []uint{trade.OfferedGarmentID, trade.RequestedGarmentID} {
			if err := txLedger.MarkSwapped(ctx, garmentID, tradeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The counterparty's concurrent confirmation may commit the
		// transition first; their call owns the closing side effects.
		if apperrors.Is(err, apperrors.CodeInvalidStateTransition) {
			if current, loadErr := ts.getTrade(ctx, tradeID); loadErr == nil &&
				current.Status == models.TradeStatusCompleted {
				return current, nil
			}
		}
		return nil, err
	}

	completed, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	ts.appendSystemMessage(ctx, completed, "negotiation closed: swap completed")
	for _, party := range []uint{completed.ProposerID, completed.ReceiverID} {
		ts.notifier.Send(ctx, party,
			"Trade completed",
			"The swap is confirmed by both parties. You can now evaluate your counterparty.",
			models.NotificationTradeCompleted, &completed.ID)
	}
	ts.publishTradeEvent(completed)

	log.Printf("[Trades] Proposal %s completed", tradeID)

	return completed, nil
}
