package models

import "time"

// LedgerEntry is an append-only record of a balance change.
type LedgerEntry struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Delta            int64     `gorm:"not null" json:"delta"` // positive = credit, negative = debit
	BalanceBefore    int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter     int64     `gorm:"not null" json:"balance_after"`
	Kind             string    `gorm:"size:20;not null;index" json:"kind"` // PURCHASE, USE, REFUND
	RelatedBookingID *string   `gorm:"size:36;index" json:"related_booking_id,omitempty"`
	IdempotencyKey   *string   `gorm:"size:128;uniqueIndex" json:"-"`
	Description      string    `gorm:"size:255" json:"description"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
