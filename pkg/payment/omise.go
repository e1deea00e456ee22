package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseVerifier looks the charge up through the Omise API.
type OmiseVerifier struct {
	client *omise.Client
}

func NewOmiseVerifier(publicKey, secretKey string) (*OmiseVerifier, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	c.SetDebug(false)
	return &OmiseVerifier{client: c}, nil
}

func (v *OmiseVerifier) VerifyCharge(ctx context.Context, c Charge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := &omise.Charge{}
	if err := v.client.Do(ch, &operations.RetrieveCharge{ChargeID: c.PaymentKey}); err != nil {
		return fmt.Errorf("retrieve charge %s: %w", c.PaymentKey, err)
	}
	return checkCharge(ch, c)
}

func checkCharge(ch *omise.Charge, want Charge) error {
	if string(ch.Status) != "successful" {
		return fmt.Errorf("charge %s status %q: %w", want.PaymentKey, ch.Status, ErrNotPaid)
	}
	if ch.Amount != want.Amount {
		return fmt.Errorf("charge %s amount %d, order expects %d: %w", want.PaymentKey, ch.Amount, want.Amount, ErrNotPaid)
	}
	if want.Currency != "" && !strings.EqualFold(ch.Currency, want.Currency) {
		return fmt.Errorf("charge %s currency %s, expected %s: %w", want.PaymentKey, ch.Currency, want.Currency, ErrNotPaid)
	}
	if orderID, ok := ch.Metadata["order_id"].(string); ok && orderID != want.OrderID {
		return fmt.Errorf("charge %s belongs to order %s: %w", want.PaymentKey, orderID, ErrNotPaid)
	}
	return nil
}
