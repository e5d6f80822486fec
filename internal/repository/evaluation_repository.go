package repository

import (
	"context"

	"trueque-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateEvaluation stores an evaluation together with its dimension scores
func (r *Repository) CreateEvaluation(ctx context.Context, eval *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(eval).Error
}

// HasEvaluation reports whether the evaluator already rated this trade.
func (r *Repository) HasEvaluation(ctx context.Context, tradeID uuid.UUID, evaluatorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("trade_id = ? AND evaluator_id = ?", tradeID, evaluatorID).
		Count(&count).Error
	return count > 0, err
}

// ListEvaluationsReceived retrieves every evaluation where the user is the
// evaluated party, with dimension scores preloaded.
func (r *Repository) ListEvaluationsReceived(ctx context.Context, userID uint) ([]*models.Evaluation, error) {
	var evals []*models.Evaluation
	err := r.db.WithContext(ctx).
		Where("evaluated_id = ?", userID).
		Preload("DimensionScores").
		Order("created_at ASC").
		Find(&evals).Error
	if err != nil {
		return nil, err
	}
	return evals, nil
}

// UpsertReputationSnapshot writes a freshly recomputed snapshot. The full
// recompute makes the write idempotent for a fixed evaluation set, so the
// upsert just overwrites.
func (r *Repository) UpsertReputationSnapshot(ctx context.Context, snapshot *models.ReputationSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score":            snapshot.Score,
			"evaluation_count": snapshot.EvaluationCount,
			"completed_trades": snapshot.CompletedTrades,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(snapshot).Error
}

// GetReputationSnapshot retrieves a user's snapshot, or nil if they have
// never been evaluated.
func (r *Repository) GetReputationSnapshot(ctx context.Context, userID uint) (*models.ReputationSnapshot, error) {
	var snapshot models.ReputationSnapshot
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&snapshot).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CountCompletedTrades counts trades the user completed as either party.
func (r *Repository) CountCompletedTrades(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TradeProposal{}).
		Where("(proposer_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, models.TradeStatusCompleted).
		Count(&count).Error
	return count, err
}
