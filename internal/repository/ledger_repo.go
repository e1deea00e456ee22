package repository

import (
	"context"

	"mentorly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// EnsureBalance creates a zero balance row for the user if none exists.
func (r *LedgerRepository) EnsureBalance(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CreditBalance{UserID: userID}).Error
}

// LockBalance reads the balance row with a row lock held until the transaction ends.
func (r *LedgerRepository) LockBalance(ctx context.Context, userID uint) (*models.CreditBalance, error) {
	var b models.CreditBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBalance returns the balance row, or nil if the user never held credit.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uint) (*models.CreditBalance, error) {
	var b models.CreditBalance
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&b)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *LedgerRepository) UpdateRemaining(ctx context.Context, userID uint, remaining int64) error {
	return r.db.WithContext(ctx).
		Model(&models.CreditBalance{}).
		Where("user_id = ?", userID).
		Update("remaining", remaining).Error
}

func (r *LedgerRepository) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LedgerRepository) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("idempotency_key = ?", key).Count(&c).Error
	return c > 0, err
}

func (r *LedgerRepository) ListEntries(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *LedgerRepository) ListEntriesByBooking(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("related_booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// EachEntry streams a user's entries oldest first.
func (r *LedgerRepository) EachEntry(ctx context.Context, userID uint, fn func(models.LedgerEntry) error) error {
	rows, err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e models.LedgerEntry
		if err := r.db.ScanRows(rows, &e); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// BalanceMismatch is a user whose stored balance differs from the ledger sum.
type BalanceMismatch struct {
	UserID    uint  `json:"user_id"`
	Remaining int64 `json:"remaining"`
	LedgerSum int64 `json:"ledger_sum"`
}

func (r *LedgerRepository) Mismatches(ctx context.Context) ([]BalanceMismatch, error) {
	var out []BalanceMismatch
	err := r.db.WithContext(ctx).
		Table("credit_balances AS b").
		Select("b.user_id AS user_id, b.remaining AS remaining, COALESCE(SUM(e.delta), 0) AS ledger_sum").
		Joins("LEFT JOIN ledger_entries AS e ON e.user_id = b.user_id").
		Group("b.user_id, b.remaining").
		Having("b.remaining <> COALESCE(SUM(e.delta), 0)").
		Scan(&out).Error
	return out, err
}
