package repository

import (
	"context"
	"time"

	"mentorly/internal/models"

	"gorm.io/gorm"
)

type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) WithTx(tx *gorm.DB) *SlotRepository {
	return &SlotRepository{db: tx}
}

func (r *SlotRepository) Create(ctx context.Context, s *models.Slot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SlotRepository) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	var s models.Slot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// IncrementOccupancy takes one seat if the slot is active and not full.
// It reports false when no row matched.
func (r *SlotRepository) IncrementOccupancy(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND active = ? AND occupancy < capacity", id, true).
		Updates(map[string]interface{}{
			"occupancy":  gorm.Expr("occupancy + ?", 1),
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

// DecrementOccupancy gives one seat back, never going below zero.
func (r *SlotRepository) DecrementOccupancy(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND occupancy > 0", id).
		Updates(map[string]interface{}{
			"occupancy":  gorm.Expr("occupancy - ?", 1),
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *SlotRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now()}).Error
}

func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Slot, error) {
	var list []models.Slot
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("scheduled_at ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// ListOpen returns active slots with a free seat starting at or after from.
func (r *SlotRepository) ListOpen(ctx context.Context, ownerID uint, from time.Time, limit, offset int) ([]models.Slot, error) {
	q := r.db.WithContext(ctx).
		Where("active = ? AND occupancy < capacity AND scheduled_at >= ?", true, from)
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var list []models.Slot
	err := q.Order("scheduled_at ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
