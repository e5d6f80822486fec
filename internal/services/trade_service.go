package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/config"
	"trueque-market/internal/models"
	"trueque-market/internal/realtime"
	"trueque-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TradeService owns the proposal state machine:
//
//	PENDING  -> ACCEPTED | REJECTED | CANCELLED | EXPIRED
//	ACCEPTED -> COMPLETED | CANCELLED
//
// Transitions are guarded compare-and-swap updates, so two racing mutations
// on the same proposal resolve to one winner and one InvalidStateTransition.
type TradeService struct {
	repo     *repository.Repository
	ledger   *GarmentLedger
	notifier NotificationSink
	hub      *realtime.Hub
	cfg      config.TradeConfig
}

func NewTradeService(
	repo *repository.Repository,
	ledger *GarmentLedger,
	notifier NotificationSink,
	hub *realtime.Hub,
	cfg config.TradeConfig,
) *TradeService {
	return &TradeService{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		hub:      hub,
		cfg:      cfg,
	}
}

// CreateTrade opens a pending proposal. Garments stay AVAILABLE so competing
// offers can accumulate until one is accepted.
func (ts *TradeService) CreateTrade(
	ctx context.Context,
	proposerID uint,
	req *models.CreateTradeRequest,
) (*models.TradeProposal, error) {
	if req.OfferedGarmentID == req.RequestedGarmentID {
		return nil, apperrors.Validation("cannot trade a garment against itself")
	}

	offered, err := ts.repo.GetGarmentByID(ctx, req.OfferedGarmentID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("offered garment %d not found", req.OfferedGarmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offered garment: %w", err)
	}

	requested, err := ts.repo.GetGarmentByID(ctx, req.RequestedGarmentID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("requested garment %d not found", req.RequestedGarmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requested garment: %w", err)
	}

	if offered.OwnerID != proposerID {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidGarmentOwnership,
			"offered garment %d does not belong to the proposer", offered.ID)
	}
	if offered.OwnerID == requested.OwnerID {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.CodeSelfTradeNotAllowed,
			"both garments belong to the same owner")
	}

	if offered.BindingState != models.GarmentAvailable {
		return nil, apperrors.InvalidStateTransition(
			"offered garment %d is %s", offered.ID, offered.BindingState)
	}
	if requested.BindingState != models.GarmentAvailable {
		return nil, apperrors.InvalidStateTransition(
			"requested garment %d is %s", requested.ID, requested.BindingState)
	}

	pending, err := ts.repo.CountPendingReferencing(ctx, requested.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending proposals: %w", err)
	}
	if pending >= int64(ts.cfg.MaxPendingPerGarment) {
		return nil, apperrors.New(apperrors.KindResourceLimit, apperrors.CodeProposalLimitExceeded,
			"garment %d already has %d pending proposals", requested.ID, pending)
	}

	now := time.Now()
	trade := &models.TradeProposal{
		ID:                 uuid.New(),
		OfferedGarmentID:   offered.ID,
		RequestedGarmentID: requested.ID,
		ProposerID:         proposerID,
		ReceiverID:         requested.OwnerID,
		Status:             models.TradeStatusPending,
		CreatedAt:          now,
		LastActivityAt:     now,
	}

	if err := ts.repo.CreateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	// The intro message becomes visible once the negotiation chat opens.
	if req.Message != "" {
		ts.appendMessage(ctx, trade, &proposerID, req.Message)
	}

	ts.notifier.Send(ctx, trade.ReceiverID,
		"New trade proposal",
		fmt.Sprintf("Someone offered a garment for your %q", requested.Title),
		models.NotificationTradeProposed, &trade.ID)
	ts.publishTradeEvent(trade)

	log.Printf("[Trades] Proposal %s created: garment %d for garment %d", trade.ID, offered.ID, requested.ID)

	return trade, nil
}

// AcceptTrade accepts a pending proposal. The acceptance, both garment locks
// and the cascading rejection of every competing pending proposal on either
// garment commit as one transaction; any conflict rolls everything back.
func (ts *TradeService) AcceptTrade(
	ctx context.Context,
	receiverID uint,
	tradeID uuid.UUID,
	message string,
) (*models.TradeProposal, error) {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	if trade.ReceiverID != receiverID {
		return nil, apperrors.NotAuthorized("only the receiver can accept a proposal")
	}
	if trade.Status != models.TradeStatusPending {
		return nil, apperrors.InvalidStateTransition(
			"cannot accept a trade in status %s", trade.Status)
	}

	var rejected []*models.TradeProposal

	err = ts.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := ts.repo.WithTx(tx)
		txLedger := ts.ledger.WithTx(tx)
		now := time.Now()

		rows, err := txRepo.TransitionTrade(ctx, tradeID,
			models.TradeStatusPending, models.TradeStatusAccepted,
			map[string]interface{}{
				"accepted_at":      now,
				"last_activity_at": now,
			})
		if err != nil {
			return fmt.Errorf("failed to accept trade: %w", err)
		}
		if rows == 0 {
			return apperrors.InvalidStateTransition("trade %s is no longer pending", tradeID)
		}

		if err := txLedger.ReserveExclusive(ctx, trade.OfferedGarmentID, tradeID); err != nil {
			return err
		}
		if err := txLedger.ReserveExclusive(ctx, trade.RequestedGarmentID, tradeID); err != nil {
			return err
		}

		competitors, err := txRepo.ListPendingCompetitors(ctx,
			[]uint{trade.OfferedGarmentID, trade.RequestedGarmentID}, tradeID)
		if err != nil {
			return fmt.Errorf("failed to list competing proposals: %w", err)
		}

		for _, competitor := range competitors {
			rows, err := txRepo.TransitionTrade(ctx, competitor.ID,
				models.TradeStatusPending, models.TradeStatusRejected,
				map[string]interface{}{
					"closure_reason": models.ClosureLostRace,
					"closed_at":      now,
				})
			if err != nil {
				return fmt.Errorf("failed to cascade-reject trade %s: %w", competitor.ID, err)
			}
			if rows == 0 {
				// A partial cascade would break the single-accepted invariant.
				return apperrors.InvalidStateTransition(
					"competing trade %s changed state during accept", competitor.ID)
			}
			rejected = append(rejected, competitor)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	accepted, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	ts.appendSystemMessage(ctx, accepted, "negotiation opened: proposal accepted")
	if message != "" {
		ts.appendMessage(ctx, accepted, &receiverID, message)
	}

	ts.notifier.Send(ctx, accepted.ProposerID,
		"Trade accepted",
		"Your proposal was accepted. The negotiation chat is open.",
		models.NotificationTradeAccepted, &accepted.ID)
	for _, loser := range rejected {
		ts.notifier.Send(ctx, loser.ProposerID,
			"Trade rejected",
			"A competing proposal on the same garment was accepted.",
			models.NotificationTradeRejected, &loser.ID)
		ts.publishTradeEvent(loser)
	}
	ts.publishTradeEvent(accepted)

	log.Printf("[Trades] Proposal %s accepted; %d competitors cascaded to REJECTED", tradeID, len(rejected))

	return accepted, nil
}

// ExpireTrade force-expires a pending proposal. The sweeper funnels through
// this entry point so manual and time-based transitions share one machine.
func (ts *TradeService) ExpireTrade(ctx context.Context, tradeID uuid.UUID) error {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	rows, err := ts.repo.TransitionTrade(ctx, tradeID,
		models.TradeStatusPending, models.TradeStatusExpired,
		map[string]interface{}{
			"closure_reason": models.ClosureExpired,
			"closed_at":      time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to expire trade: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidStateTransition(
			"trade %s is no longer pending", tradeID)
	}

	// Pending proposals never held garments, but expiry goes through the same
	// release path as every other closing transition.
	ts.releaseHolds(ctx, trade)

	if updated, err := ts.getTrade(ctx, tradeID); err == nil {
		trade = updated
	}
	ts.appendSystemMessage(ctx, trade, "negotiation closed: expired")
	for _, party := range []uint{trade.ProposerID, trade.ReceiverID} {
		ts.notifier.Send(ctx, party,
			"Trade expired",
			"The proposal went unanswered for too long and has expired.",
			models.NotificationTradeExpired, &trade.ID)
	}
	ts.publishTradeEvent(trade)

	log.Printf("[Trades] Proposal %s expired", tradeID)

	return nil
}

// GetTradeForUser retrieves a trade visible to one of its parties.
func (ts *TradeService) GetTradeForUser(ctx context.Context, tradeID uuid.UUID, userID uint) (*models.TradeProposal, error) {
	trade, err := ts.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(userID) {
		return nil, apperrors.NotAuthorized("trade %s does not involve the caller", tradeID)
	}
	return trade, nil
}

// ListTradesFor lists a user's proposals filtered by role and status.
func (ts *TradeService) ListTradesFor(
	ctx context.Context,
	userID uint,
	role string,
	status models.TradeStatus,
	limit, offset int,
) ([]*models.TradeResponse, int64, error) {
	trades, total, err := ts.repo.ListTradesForUser(ctx, userID, role, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trades: %w", err)
	}

	users := map[uint]*models.User{}
	responses := make([]*models.TradeResponse, 0, len(trades))
	for _, trade := range trades {
		unread, err := ts.repo.CountUnreadMessages(ctx, trade.ID, readColumnFor(trade, userID), userID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count unread messages: %w", err)
		}
		responses = append(responses, &models.TradeResponse{
			ID:                 trade.ID.String(),
			OfferedGarmentID:   trade.OfferedGarmentID,
			RequestedGarmentID: trade.RequestedGarmentID,
			Proposer:           ts.userInfo(ctx, users, trade.ProposerID),
			Receiver:           ts.userInfo(ctx, users, trade.ReceiverID),
			Status:             string(trade.Status),
			ClosureReason:      trade.ClosureReason,
			UnreadMessages:     unread,
			CreatedAt:          trade.CreatedAt,
			LastActivityAt:     trade.LastActivityAt,
			AcceptedAt:         trade.AcceptedAt,
			ClosedAt:           trade.ClosedAt,
		})
	}

	return responses, total, nil
}

// ListExpiringSoon returns pending proposals inside the expiry warning window
// that have not been reminded yet. Read-only; the sweeper marks them warned.
func (ts *TradeService) ListExpiringSoon(ctx context.Context, limit int) ([]*models.TradeProposal, error) {
	now := time.Now()
	cutoff := now.Add(-ts.cfg.ProposalTTL)
	warnAfter := now.Add(-(ts.cfg.ProposalTTL - ts.cfg.ExpiryWarningWindow))
	return ts.repo.ListExpiringPending(ctx, warnAfter, cutoff, limit)
}

// ListOverdue returns pending proposals past their TTL.
func (ts *TradeService) ListOverdue(ctx context.Context, limit int) ([]*models.TradeProposal, error) {
	return ts.repo.ListOverduePending(ctx, time.Now().Add(-ts.cfg.ProposalTTL), limit)
}

// MarkWarned records that an expiry reminder was sent.
func (ts *TradeService) MarkWarned(ctx context.Context, tradeID uuid.UUID) error {
	return ts.repo.MarkTradeWarned(ctx, tradeID)
}

// getTrade loads a trade, mapping missing rows to the domain error.
func (ts *TradeService) getTrade(ctx context.Context, tradeID uuid.UUID) (*models.TradeProposal, error) {
	trade, err := ts.repo.GetTradeByID(ctx, tradeID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("trade %s not found", tradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

// releaseHolds returns both garments to AVAILABLE where this trade holds
// them. Garments bound to a different accepted trade are untouched.
func (ts *TradeService) releaseHolds(ctx context.Context, trade *models.TradeProposal) {
	for _, garmentID := range []uint{trade.OfferedGarmentID, trade.RequestedGarmentID} {
		if err := ts.ledger.Release(ctx, garmentID, trade.ID); err != nil {
			log.Printf("[Trades] Failed to release garment %d for trade %s: %v", garmentID, trade.ID, err)
		}
	}
}

// appendMessage stores a party message on the trade's negotiation log.
func (ts *TradeService) appendMessage(ctx context.Context, trade *models.TradeProposal, senderID *uint, body string) {
	msg := &models.TradeMessage{
		ID:        uuid.New(),
		TradeID:   trade.ID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if senderID != nil {
		now := time.Now()
		if *senderID == trade.ProposerID {
			msg.ReadByProposerAt = &now
		} else if *senderID == trade.ReceiverID {
			msg.ReadByReceiverAt = &now
		}
	}
	if err := ts.repo.CreateMessage(ctx, msg); err != nil {
		log.Printf("[Trades] Failed to append message to trade %s: %v", trade.ID, err)
	}
}

// appendSystemMessage stores a state-machine message (nil sender).
func (ts *TradeService) appendSystemMessage(ctx context.Context, trade *models.TradeProposal, body string) {
	ts.appendMessage(ctx, trade, nil, body)
}

// publishTradeEvent pushes the trade's current shape to its topic. Delivery
// is best effort; clients reconcile through GetTradeForUser.
func (ts *TradeService) publishTradeEvent(trade *models.TradeProposal) {
	ts.hub.Publish(realtime.Message{
		Topic: realtime.TradeTopic(trade.ID),
		Event: realtime.EventTradeUpdated,
		Data:  trade,
	})
}

// userInfo resolves a compact user shape, caching per request.
func (ts *TradeService) userInfo(ctx context.Context, cache map[uint]*models.User, userID uint) models.UserInfo {
	user, ok := cache[userID]
	if !ok {
		var err error
		user, err = ts.repo.GetUserByID(ctx, userID)
		if err != nil {
			return models.UserInfo{ID: userID}
		}
		cache[userID] = user
	}
	info := models.UserInfo{ID: user.ID, Nickname: user.Nickname}
	if user.AvatarURL != nil {
		info.Avatar = *user.AvatarURL
	}
	return info
}

// readColumnFor picks the reader's read-marker column on trade messages.
func readColumnFor(trade *models.TradeProposal, userID uint) string {
	if trade.ProposerID == userID {
		return "read_by_proposer_at"
	}
	return "read_by_receiver_at"
}
