package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditLedger owns session-credit balances. Every mutation locks the user's
// balance row and appends exactly one ledger entry in the same transaction.
type CreditLedger struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewCreditLedger(db *gorm.DB, logger *slog.Logger) *CreditLedger {
	return &CreditLedger{db: db, logger: logger}
}

// WithTx returns a ledger whose writes join tx.
func (l *CreditLedger) WithTx(tx *gorm.DB) *CreditLedger {
	return &CreditLedger{db: tx, logger: l.logger}
}

type CreditRequest struct {
	UserID           uint
	Amount           int64
	Kind             string // PURCHASE or REFUND
	RelatedBookingID string
	IdempotencyKey   string
	Description      string
}

type DebitRequest struct {
	UserID           uint
	Amount           int64
	RelatedBookingID string
	IdempotencyKey   string
	Description      string
}

func (l *CreditLedger) Credit(ctx context.Context, req CreditRequest) (*models.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Kind != domain.LedgerKindPurchase && req.Kind != domain.LedgerKindRefund {
		return nil, fmt.Errorf("credit kind %q: %w", req.Kind, domain.ErrInvalidKind)
	}
	return l.apply(context.WithoutCancel(ctx), req.UserID, req.Amount, req.Kind, req.RelatedBookingID, req.IdempotencyKey, req.Description)
}

func (l *CreditLedger) Debit(ctx context.Context, req DebitRequest) (*models.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	return l.apply(context.WithoutCancel(ctx), req.UserID, -req.Amount, domain.LedgerKindUse, req.RelatedBookingID, req.IdempotencyKey, req.Description)
}

func (l *CreditLedger) apply(ctx context.Context, userID uint, delta int64, kind, bookingID, key, desc string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewLedgerRepository(tx)
		if key != "" {
			used, err := repo.HasIdempotencyKey(ctx, key)
			if err != nil {
				return err
			}
			if used {
				return fmt.Errorf("ledger key %s: %w", key, domain.ErrDuplicateLedgerEntry)
			}
		}
		if err := repo.EnsureBalance(ctx, userID); err != nil {
			return err
		}
		bal, err := repo.LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		after := bal.Remaining + delta
		if after < 0 {
			return fmt.Errorf("user %d holds %d, needs %d: %w", userID, bal.Remaining, -delta, domain.ErrInsufficientCredit)
		}
		if err := repo.UpdateRemaining(ctx, userID, after); err != nil {
			return err
		}
		entry = &models.LedgerEntry{
			ID:            uuid.NewString(),
			UserID:        userID,
			Delta:         delta,
			BalanceBefore: bal.Remaining,
			BalanceAfter:  after,
			Kind:          kind,
			Description:   desc,
		}
		if bookingID != "" {
			entry.RelatedBookingID = &bookingID
		}
		if key != "" {
			entry.IdempotencyKey = &key
		}
		if err := repo.AppendEntry(ctx, entry); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("ledger key %s: %w", key, domain.ErrDuplicateLedgerEntry)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("ledger entry recorded",
		"user_id", userID,
		"kind", kind,
		"delta", delta,
		"balance_after", entry.BalanceAfter,
	)
	return entry, nil
}

// BalanceOf returns the user's remaining credit; users without history hold zero.
func (l *CreditLedger) BalanceOf(ctx context.Context, userID uint) (int64, error) {
	b, err := repository.NewLedgerRepository(l.db).GetBalance(context.WithoutCancel(ctx), userID)
	if err != nil {
		return 0, err
	}
	if b == nil {
		return 0, nil
	}
	return b.Remaining, nil
}

func (l *CreditLedger) Entries(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	return repository.NewLedgerRepository(l.db).ListEntries(ctx, userID, limit, offset)
}

func (l *CreditLedger) EntriesForBooking(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	return repository.NewLedgerRepository(l.db).ListEntriesByBooking(ctx, bookingID)
}

// Export streams every entry of a user oldest first.
func (l *CreditLedger) Export(ctx context.Context, userID uint, fn func(models.LedgerEntry) error) error {
	return repository.NewLedgerRepository(l.db).EachEntry(ctx, userID, fn)
}

// Reconcile lists users whose balance disagrees with the sum of their entries.
func (l *CreditLedger) Reconcile(ctx context.Context) ([]repository.BalanceMismatch, error) {
	return repository.NewLedgerRepository(l.db).Mismatches(ctx)
}
