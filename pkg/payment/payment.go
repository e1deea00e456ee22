package payment

import (
	"context"
	"errors"
)

// ErrNotPaid means the provider does not confirm the charge as paid in full.
var ErrNotPaid = errors.New("charge not paid")

// Charge identifies a provider charge claimed to settle an order.
type Charge struct {
	PaymentKey string
	OrderID    string
	Amount     int64
	Currency   string
}

// Verifier confirms with the payment provider that a charge settled.
type Verifier interface {
	VerifyCharge(ctx context.Context, c Charge) error
}
