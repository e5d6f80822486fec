package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Evaluation is a post-swap rating of the counterparty. One per
// (trade, evaluator), creatable only after the trade completed.
type Evaluation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TradeID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_trade_evaluator" json:"trade_id"`
	EvaluatorID  uint      `gorm:"not null;index;uniqueIndex:idx_trade_evaluator" json:"evaluator_id"`
	EvaluatedID  uint      `gorm:"not null;index" json:"evaluated_id"`
	OverallScore int       `gorm:"not null;check:overall_score >= 1 AND overall_score <= 5" json:"overall_score"`
	Comment      string    `gorm:"size:1000" json:"comment"`
	CreatedAt    time.Time `json:"created_at"`

	DimensionScores []EvaluationScore `gorm:"foreignKey:EvaluationID" json:"dimension_scores,omitempty"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// EvaluationScore is a per-dimension 1..5 score attached to an evaluation.
type EvaluationScore struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EvaluationID uuid.UUID `gorm:"type:uuid;not null;index" json:"evaluation_id"`
	Dimension    string    `gorm:"size:100;not null" json:"dimension"`
	Score        int       `gorm:"not null;check:score >= 1 AND score <= 5" json:"score"`
}

func (EvaluationScore) TableName() string {
	return "evaluation_scores"
}

// ReputationSnapshot holds the rolling weighted average of all evaluations
// received by a user. Recomputed in full on every accepted evaluation.
type ReputationSnapshot struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Score           decimal.Decimal `gorm:"type:decimal(4,2);default:0" json:"score"`
	EvaluationCount int64           `gorm:"default:0" json:"evaluation_count"`
	CompletedTrades int64           `gorm:"default:0" json:"completed_trades"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (ReputationSnapshot) TableName() string {
	return "reputation_snapshots"
}

// SubmitEvaluationRequest represents an evaluation submission
type SubmitEvaluationRequest struct {
	OverallScore    int            `json:"overall_score" binding:"required,min=1,max=5"`
	DimensionScores map[string]int `json:"dimension_scores"`
	Comment         string         `json:"comment"`
}
