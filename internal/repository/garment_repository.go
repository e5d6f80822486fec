package repository

import (
	"context"
	"time"

	"trueque-market/internal/models"

	"github.com/google/uuid"
)

// CreateGarment creates a new garment listing
func (r *Repository) CreateGarment(ctx context.Context, garment *models.Garment) error {
	return r.db.WithContext(ctx).Create(garment).Error
}

// GetGarmentByID retrieves a garment by ID
func (r *Repository) GetGarmentByID(ctx context.Context, garmentID uint) (*models.Garment, error) {
	var garment models.Garment
	err := r.db.WithContext(ctx).Where("id = ?", garmentID).First(&garment).Error
	if err != nil {
		return nil, err
	}
	return &garment, nil
}

// ListGarmentsByOwner retrieves all garments listed by a user
func (r *Repository) ListGarmentsByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Garment, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Garment{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var garments []*models.Garment
	err = r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&garments).Error
	if err != nil {
		return nil, 0, err
	}

	return garments, total, nil
}

// ListAvailableGarments retrieves garments open to new proposals, newest
// first. An empty category matches all categories.
func (r *Repository) ListAvailableGarments(ctx context.Context, category string, limit, offset int) ([]*models.Garment, int64, error) {
	conditions := map[string]interface{}{"binding_state": models.GarmentAvailable}
	if category != "" {
		conditions["category"] = category
	}

	var total int64
	err := r.db.WithContext(ctx).Model(&models.Garment{}).
		Where(conditions).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var garments []*models.Garment
	err = r.db.WithContext(ctx).
		Where(conditions).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&garments).Error
	if err != nil {
		return nil, 0, err
	}

	return garments, total, nil
}

// IsGarmentOwnedBy reports whether the garment belongs to the user.
func (r *Repository) IsGarmentOwnedBy(ctx context.Context, garmentID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Garment{}).
		Where("id = ? AND owner_id = ?", garmentID, userID).
		Count(&count).Error
	return count > 0, err
}

// BindGarment flips a garment from one binding state to another with a guarded
// update, recording the holding trade. Returns rows affected: 0 means the
// garment was not in the expected state.
func (r *Repository) BindGarment(
	ctx context.Context,
	garmentID uint,
	from, to models.GarmentBindingState,
	heldBy *uuid.UUID,
) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Garment{}).
		Where("id = ? AND binding_state = ?", garmentID, from).
		Updates(map[string]interface{}{
			"binding_state":    to,
			"held_by_trade_id": heldBy,
			"updated_at":       time.Now(),
		})
	return result.RowsAffected, result.Error
}

// SwapHeldGarment finalizes a garment to SWAPPED, guarded on the trade that
// holds it.
func (r *Repository) SwapHeldGarment(ctx context.Context, garmentID uint, tradeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Garment{}).
		Where("id = ? AND binding_state = ? AND held_by_trade_id = ?",
			garmentID, models.GarmentInNegotiation, tradeID).
		Updates(map[string]interface{}{
			"binding_state": models.GarmentSwapped,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ReleaseGarmentHold releases a garment back to AVAILABLE only if the given
// trade currently holds it. Garments already re-bound by another accepted
// trade are left alone.
func (r *Repository) ReleaseGarmentHold(ctx context.Context, garmentID uint, tradeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Garment{}).
		Where("id = ? AND binding_state = ? AND held_by_trade_id = ?",
			garmentID, models.GarmentInNegotiation, tradeID).
		Updates(map[string]interface{}{
			"binding_state":    models.GarmentAvailable,
			"held_by_trade_id": nil,
			"updated_at":       time.Now(),
		})
	return result.RowsAffected, result.Error
}
