package models

import "time"

// CreditBalance is the current session-credit balance of one user.
// It always equals the sum of the user's ledger deltas.
type CreditBalance struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Remaining int64     `gorm:"not null;default:0;check:remaining >= 0" json:"remaining"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CreditBalance) TableName() string {
	return "credit_balances"
}
