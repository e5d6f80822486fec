package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"
)

// GarmentService handles garment listing business logic. Binding-state
// transitions driven by trades live in GarmentLedger, not here.
type GarmentService struct {
	repo *repository.Repository
}

// NewGarmentService creates a new GarmentService
func NewGarmentService(repo *repository.Repository) *GarmentService {
	return &GarmentService{repo: repo}
}

// CreateGarment lists a new garment for the owner, starting AVAILABLE.
func (s *GarmentService) CreateGarment(ctx context.Context, ownerID uint, req *models.CreateGarmentRequest) (*models.Garment, error) {
	garment := &models.Garment{
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Size:         req.Size,
		Condition:    req.Condition,
		ImageURL:     req.ImageURL,
		BindingState: models.GarmentAvailable,
	}
	if err := s.repo.CreateGarment(ctx, garment); err != nil {
		return nil, fmt.Errorf("failed to create garment: %w", err)
	}

	log.Printf("[Garment] Listed garment %d (%s) for user %d", garment.ID, garment.Title, ownerID)

	return garment, nil
}

// GetGarment retrieves a garment by ID.
func (s *GarmentService) GetGarment(ctx context.Context, garmentID uint) (*models.Garment, error) {
	garment, err := s.repo.GetGarmentByID(ctx, garmentID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("garment %d not found", garmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get garment: %w", err)
	}
	return garment, nil
}

// ListGarmentsByOwner retrieves a user's listed garments with pagination.
func (s *GarmentService) ListGarmentsByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Garment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListGarmentsByOwner(ctx, ownerID, limit, offset)
}

// BrowseGarments retrieves AVAILABLE garments for proposal shopping, with an
// optional category filter.
func (s *GarmentService) BrowseGarments(ctx context.Context, category string, limit, offset int) ([]*models.Garment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListAvailableGarments(ctx, category, limit, offset)
}

// WithdrawGarment pulls a garment off the market. Only AVAILABLE garments can
// be withdrawn; a garment held by an accepted trade must be freed by closing
// that trade first.
func (s *GarmentService) WithdrawGarment(ctx context.Context, userID, garmentID uint) (*models.Garment, error) {
	garment, err := s.GetGarment(ctx, garmentID)
	if err != nil {
		return nil, err
	}
	if garment.OwnerID != userID {
		return nil, apperrors.New(apperrors.KindAuthorization, apperrors.CodeInvalidGarmentOwnership,
			"garment %d does not belong to user %d", garmentID, userID)
	}

	rows, err := s.repo.BindGarment(ctx, garmentID, models.GarmentAvailable, models.GarmentWithdrawn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw garment: %w", err)
	}
	if rows == 0 {
		return nil, apperrors.InvalidStateTransition(
			"garment %d cannot be withdrawn from state %s", garmentID, garment.BindingState)
	}

	log.Printf("[Garment] Withdrew garment %d for user %d", garmentID, userID)

	return s.GetGarment(ctx, garmentID)
}
