package payment

import (
	"context"
	"fmt"
	"strings"
)

// StubVerifier accepts any payment key carrying the "stub_" prefix. Development only.
type StubVerifier struct{}

func (StubVerifier) VerifyCharge(_ context.Context, c Charge) error {
	if !strings.HasPrefix(c.PaymentKey, "stub_") {
		return fmt.Errorf("stub charge %q: %w", c.PaymentKey, ErrNotPaid)
	}
	return nil
}
