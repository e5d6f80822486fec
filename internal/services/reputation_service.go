package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/config"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReputationService aggregates post-swap evaluations into per-user weighted
// scores. Recomputation is a full pass over the user's received evaluations,
// so it is idempotent for a fixed evaluation set.
type ReputationService struct {
	repo     *repository.Repository
	notifier NotificationSink
	cfg      config.ReputationConfig
}

func NewReputationService(repo *repository.Repository, notifier NotificationSink, cfg config.ReputationConfig) *ReputationService {
	return &ReputationService{repo: repo, notifier: notifier, cfg: cfg}
}

// SubmitEvaluation rates the counterparty of a completed trade. One
// evaluation per (trade, evaluator); eligibility requires the trade to be
// COMPLETED and the evaluator to be one of its parties.
func (rs *ReputationService) SubmitEvaluation(
	ctx context.Context,
	evaluatorID uint,
	tradeID uuid.UUID,
	req *models.SubmitEvaluationRequest,
) (*models.Evaluation, error) {
	trade, err := rs.repo.GetTradeByID(ctx, tradeID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("trade %s not found", tradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	if !trade.IsParty(evaluatorID) {
		return nil, apperrors.New(apperrors.KindAuthorization, apperrors.CodeNotEligible,
			"evaluator is not a party to trade %s", tradeID)
	}
	if trade.Status != models.TradeStatusCompleted {
		return nil, apperrors.New(apperrors.KindStateConflict, apperrors.CodeNotEligible,
			"trade %s is not completed (current: %s)", tradeID, trade.Status)
	}

	for dimension, score := range req.DimensionScores {
		if _, known := rs.cfg.DimensionWeights[dimension]; !known {
			return nil, apperrors.Validation("unknown evaluation dimension %q", dimension)
		}
		if score < 1 || score > 5 {
			return nil, apperrors.Validation("dimension %q score must be between 1 and 5", dimension)
		}
	}

	exists, err := rs.repo.HasEvaluation(ctx, tradeID, evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing evaluation: %w", err)
	}
	if exists {
		return nil, apperrors.New(apperrors.KindStateConflict, apperrors.CodeDuplicateEvaluation,
			"trade %s was already evaluated by user %d", tradeID, evaluatorID)
	}

	evaluatedID := trade.OtherParty(evaluatorID)
	eval := &models.Evaluation{
		ID:           uuid.New(),
		TradeID:      tradeID,
		EvaluatorID:  evaluatorID,
		EvaluatedID:  evaluatedID,
		OverallScore: req.OverallScore,
		Comment:      req.Comment,
		CreatedAt:    time.Now(),
	}
	for dimension, score := range req.DimensionScores {
		eval.DimensionScores = append(eval.DimensionScores, models.EvaluationScore{
			ID:           uuid.New(),
			EvaluationID: eval.ID,
			Dimension:    dimension,
			Score:        score,
		})
	}

	if err := rs.repo.CreateEvaluation(ctx, eval); err != nil {
		// Concurrent duplicate submits race past HasEvaluation and land
		// on the (trade, evaluator) unique index instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindStateConflict, apperrors.CodeDuplicateEvaluation,
				"trade %s was already evaluated by user %d", tradeID, evaluatorID)
		}
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	// A failed recompute leaves the snapshot transiently stale; the next
	// evaluation event recomputes from scratch anyway.
	if err := rs.Recompute(ctx, evaluatedID); err != nil {
		log.Printf("[Reputation] Recompute failed for user %d: %v", evaluatedID, err)
	}

	rs.notifier.Send(ctx, evaluatedID,
		"New evaluation",
		fmt.Sprintf("You received a %d-star evaluation.", req.OverallScore),
		models.NotificationNewEvaluation, &tradeID)

	return eval, nil
}

// Recompute rebuilds a user's reputation snapshot from every evaluation they
// have received. Each evaluation's contribution blends the direct overall
// score with the weighted mean of its dimension scores; the final score is
// the average of the blends, rounded to 2 decimals half-up.
func (rs *ReputationService) Recompute(ctx context.Context, userID uint) error {
	evals, err := rs.repo.ListEvaluationsReceived(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list evaluations: %w", err)
	}
	if len(evals) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, eval := range evals {
		sum = sum.Add(rs.blendedScore(eval))
	}
	score := sum.Div(decimal.NewFromInt(int64(len(evals)))).Round(2)

	completed, err := rs.repo.CountCompletedTrades(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count completed trades: %w", err)
	}

	snapshot := &models.ReputationSnapshot{
		UserID:          userID,
		Score:           score,
		EvaluationCount: int64(len(evals)),
		CompletedTrades: completed,
	}
	if err := rs.repo.UpsertReputationSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	log.Printf("[Reputation] User %d recomputed: score=%s over %d evaluations", userID, score, len(evals))

	return nil
}

// blendedScore combines one evaluation's overall score with its weighted
// dimension average. Without dimension scores the overall stands alone.
func (rs *ReputationService) blendedScore(eval *models.Evaluation) decimal.Decimal {
	overall := decimal.NewFromInt(int64(eval.OverallScore))
	if len(eval.DimensionScores) == 0 {
		return overall
	}

	weighted := decimal.Zero
	weightSum := decimal.Zero
	for _, ds := range eval.DimensionScores {
		weight := decimal.NewFromFloat(rs.cfg.DimensionWeights[ds.Dimension])
		weighted = weighted.Add(weight.Mul(decimal.NewFromInt(int64(ds.Score))))
		weightSum = weightSum.Add(weight)
	}
	if weightSum.IsZero() {
		return overall
	}
	dimensionAvg := weighted.Div(weightSum)

	overallWeight := decimal.NewFromFloat(rs.cfg.OverallWeight)
	return overall.Mul(overallWeight).
		Add(dimensionAvg.Mul(decimal.NewFromInt(1).Sub(overallWeight)))
}

// GetReputation retrieves a user's snapshot. Users with no evaluations get a
// zero-valued snapshot rather than an error.
func (rs *ReputationService) GetReputation(ctx context.Context, userID uint) (*models.ReputationSnapshot, error) {
	snapshot, err := rs.repo.GetReputationSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snapshot == nil {
		return &models.ReputationSnapshot{UserID: userID, Score: decimal.Zero}, nil
	}
	return snapshot, nil
}
