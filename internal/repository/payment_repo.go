package repository

import (
	"context"
	"time"

	"mentorly/internal/domain"
	"mentorly/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ExistsByKeyOrOrder reports whether a payment already used paymentKey or orderID.
func (r *PaymentRepository) ExistsByKeyOrOrder(ctx context.Context, paymentKey, orderID string) (bool, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("payment_key = ? OR order_id = ?", paymentKey, orderID).
		Count(&c).Error
	return c > 0, err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("paid_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *PaymentRepository) CreateOrder(ctx context.Context, o *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *PaymentRepository) GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkOrderPaid flips a PREPARED order to PAID. It reports false if the order was not PREPARED.
func (r *PaymentRepository) MarkOrderPaid(ctx context.Context, orderID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", orderID, domain.OrderStatusPrepared).
		Updates(map[string]interface{}{"status": domain.OrderStatusPaid, "paid_at": at, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}
