package repository

import (
	"context"
	"time"

	"trueque-market/internal/models"

	"github.com/google/uuid"
)

// CreateTrade creates a new trade proposal
func (r *Repository) CreateTrade(ctx context.Context, trade *models.TradeProposal) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// GetTradeByID retrieves a trade proposal by ID
func (r *Repository) GetTradeByID(ctx context.Context, tradeID uuid.UUID) (*models.TradeProposal, error) {
	var trade models.TradeProposal
	err := r.db.WithContext(ctx).Where("id = ?", tradeID).First(&trade).Error
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// TransitionTrade flips a trade from one status to another with a guarded
// update. Returns the number of rows changed: 0 means the trade was not in
// the expected status anymore and the caller lost the race.
func (r *Repository) TransitionTrade(
	ctx context.Context,
	tradeID uuid.UUID,
	from, to models.TradeStatus,
	updates map[string]interface{},
) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("id = ? AND status = ?", tradeID, from).
		Updates(updates)

	return result.RowsAffected, result.Error
}

// CountPendingReferencing counts pending proposals that reference the garment
// on either side of the exchange.
func (r *Repository) CountPendingReferencing(ctx context.Context, garmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("(requested_garment_id = ? OR offered_garment_id = ?) AND status = ?",
			garmentID, garmentID, models.TradeStatusPending).
		Count(&count).Error
	return count, err
}

// ListPendingCompetitors retrieves pending proposals, other than exclude, that
// reference any of the given garments on either side.
func (r *Repository) ListPendingCompetitors(
	ctx context.Context,
	garmentIDs []uint,
	exclude uuid.UUID,
) ([]*models.TradeProposal, error) {
	var trades []*models.TradeProposal
	err := r.db.WithContext(ctx).
		Where("status = ? AND id != ? AND (requested_garment_id IN ? OR offered_garment_id IN ?)",
			models.TradeStatusPending, exclude, garmentIDs, garmentIDs).
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// ListTradesForUser retrieves trades where the user is proposer, receiver or
// either, optionally filtered by status, newest first.
func (r *Repository) ListTradesForUser(
	ctx context.Context,
	userID uint,
	role string,
	status models.TradeStatus,
	limit, offset int,
) ([]*models.TradeProposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TradeProposal{})

	switch role {
	case "proposer":
		query = query.Where("proposer_id = ?", userID)
	case "receiver":
		query = query.Where("receiver_id = ?", userID)
	default:
		query = query.Where("proposer_id = ? OR receiver_id = ?", userID, userID)
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trades []*models.TradeProposal
	err := query.
		Order("last_activity_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	if err != nil {
		return nil, 0, err
	}

	return trades, total, nil
}

// ListOverduePending retrieves pending proposals created before the cutoff.
func (r *Repository) ListOverduePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.TradeProposal, error) {
	var trades []*models.TradeProposal
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.TradeStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// ListExpiringPending retrieves pending proposals created inside the warning
// window that have not been warned yet.
func (r *Repository) ListExpiringPending(
	ctx context.Context,
	warnAfter, cutoff time.Time,
	limit int,
) ([]*models.TradeProposal, error) {
	var trades []*models.TradeProposal
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND created_at >= ? AND last_warned_at IS NULL",
			models.TradeStatusPending, warnAfter, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// MarkTradeWarned records that an expiry reminder went out for a trade.
func (r *Repository) MarkTradeWarned(ctx context.Context, tradeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("id = ?", tradeID).
		Update("last_warned_at", time.Now()).Error
}

// TouchTradeActivity bumps last_activity_at, used by chat posts.
func (r *Repository) TouchTradeActivity(ctx context.Context, tradeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("id = ?", tradeID).
		Update("last_activity_at", time.Now()).Error
}

// SetConfirmation sets a party's completion confirmation flag while the trade
// is still accepted. Returns rows affected so callers can detect races.
func (r *Repository) SetConfirmation(ctx context.Context, tradeID uuid.UUID, column string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("id = ? AND status = ?", tradeID, models.TradeStatusAccepted).
		Updates(map[string]interface{}{column: true, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// CountAcceptedHolding counts accepted trades referencing a garment. Used by
// invariant checks in tests.
func (r *Repository) CountAcceptedHolding(ctx context.Context, garmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TradeProposal{}).
		Where("(requested_garment_id = ? OR offered_garment_id = ?) AND status = ?",
			garmentID, garmentID, models.TradeStatusAccepted).
		Count(&count).Error
	return count, err
}
