package models

import "time"

// Payment records a completed package purchase. Rows are never updated.
type Payment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PaymentKey      string    `gorm:"size:255;not null;uniqueIndex" json:"payment_key"`
	OrderID         string    `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	PackageID       string    `gorm:"size:64;not null" json:"package_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	SessionsGranted int64     `gorm:"not null" json:"sessions_granted"`
	PaidAt          time.Time `json:"paid_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentOrder retains what a prepared order is for until it is paid.
type PaymentOrder struct {
	ID        string     `gorm:"primaryKey;size:64" json:"order_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	PackageID string     `gorm:"size:64;not null" json:"package_id"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Sessions  int64      `gorm:"not null" json:"sessions"`
	Status    string     `gorm:"size:20;not null;index" json:"status"` // PREPARED, PAID
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

type CreditPackage struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	Sessions  int64     `gorm:"not null" json:"sessions"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	SortOrder int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CreditPackage) TableName() string {
	return "credit_packages"
}
