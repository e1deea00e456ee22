package repository

import (
	"context"
	"time"

	"mentorly/internal/domain"
	"mentorly/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetWithSlot(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Preload("Slot").Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Transition moves the booking to state `to` only if it is currently in one of
// `from`, applying extra columns in the same statement. It reports false when
// the booking was not in an allowed state.
func (r *BookingRepository) Transition(ctx context.Context, id string, from []string, to string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"state": to, "updated_at": time.Now()}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID uint, state string, limit, offset int) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).Where("requester_id = ?", requesterID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.Booking
	err := q.Preload("Slot").Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *BookingRepository) ListByMentor(ctx context.Context, mentorID uint, state string, limit, offset int) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).Where("mentor_id = ?", mentorID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.Booking
	err := q.Preload("Slot").Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// CountPendingByMentor returns how many requests still wait on the mentor's answer.
func (r *BookingRepository) CountPendingByMentor(ctx context.Context, mentorID uint) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("mentor_id = ? AND state = ?", mentorID, domain.BookingStatePending).
		Count(&c).Error
	return c, err
}
