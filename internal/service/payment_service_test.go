package service

import (
	"context"
	"sync"
	"testing"

	"mentorly/internal/domain"
	"mentorly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) prepare(t *testing.T, userID uint, packageID string) *PaymentIntent {
	t.Helper()
	intent, err := h.gateway.PreparePayment(context.Background(), PreparePaymentRequest{UserID: userID, PackageID: packageID})
	require.NoError(t, err)
	return intent
}

func TestPrepareAndCompletePayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent := h.prepare(t, studentA, "bundle-5")
	require.NotEmpty(t, intent.OrderID)
	require.Equal(t, int64(135000), intent.Amount)
	require.Equal(t, int64(5), intent.SessionsGranted)

	p, err := h.gateway.CompletePayment(ctx, CompletePaymentRequest{
		UserID: studentA, PaymentKey: "stub_chrg_1", OrderID: intent.OrderID, Amount: intent.Amount,
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), p.SessionsGranted)
	require.Equal(t, "bundle-5", p.PackageID)
	require.Equal(t, int64(5), h.balance(t, studentA))
	require.Equal(t, []string{domain.EventPaymentCompleted}, h.events.Keys())

	entries, err := h.ledger.Entries(ctx, studentA, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.LedgerKindPurchase, entries[0].Kind)
	h.requireLedgerConsistent(t)
}

func TestPrepareUnknownPackage(t *testing.T) {
	h := newHarness(t)
	_, err := h.gateway.PreparePayment(context.Background(), PreparePaymentRequest{UserID: studentA, PackageID: "gold"})
	require.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestCompletePaymentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	intent := h.prepare(t, studentA, "single")
	req := CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_chrg_2", OrderID: intent.OrderID, Amount: intent.Amount}

	_, err := h.gateway.CompletePayment(ctx, req)
	require.NoError(t, err)

	_, err = h.gateway.CompletePayment(ctx, req)
	require.ErrorIs(t, err, domain.ErrDuplicatePayment)
	require.True(t, isKind(err, domain.KindDuplicate))

	// same order with a fresh key is still a duplicate
	req.PaymentKey = "stub_chrg_3"
	_, err = h.gateway.CompletePayment(ctx, req)
	require.ErrorIs(t, err, domain.ErrDuplicatePayment)

	// same key against another order too
	other := h.prepare(t, studentA, "single")
	_, err = h.gateway.CompletePayment(ctx, CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_chrg_2", OrderID: other.OrderID, Amount: other.Amount})
	require.ErrorIs(t, err, domain.ErrDuplicatePayment)

	require.Equal(t, int64(1), h.balance(t, studentA))
	var n int64
	require.NoError(t, h.db.Model(&models.Payment{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
	h.requireLedgerConsistent(t)
}

func TestCompletePaymentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	intent := h.prepare(t, studentA, "single")

	cases := []struct {
		name string
		req  CompletePaymentRequest
		want error
	}{
		{"missing key", CompletePaymentRequest{UserID: studentA, OrderID: intent.OrderID, Amount: intent.Amount}, domain.ErrMissingPaymentRef},
		{"zero amount", CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_x", OrderID: intent.OrderID}, domain.ErrInvalidAmount},
		{"unknown order", CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_x", OrderID: "ord_missing", Amount: 1}, domain.ErrOrderNotFound},
		{"other user", CompletePaymentRequest{UserID: studentB, PaymentKey: "stub_x", OrderID: intent.OrderID, Amount: intent.Amount}, domain.ErrNotOrderOwner},
		{"wrong amount", CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_x", OrderID: intent.OrderID, Amount: intent.Amount - 1}, domain.ErrAmountMismatch},
		{"unverified charge", CompletePaymentRequest{UserID: studentA, PaymentKey: "chrg_forged", OrderID: intent.OrderID, Amount: intent.Amount}, domain.ErrPaymentNotPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.gateway.CompletePayment(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	require.Equal(t, int64(0), h.balance(t, studentA))
	require.Equal(t, int64(0), h.balance(t, studentB))
	// the order is still payable after the failed attempts
	_, err := h.gateway.CompletePayment(ctx, CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_ok", OrderID: intent.OrderID, Amount: intent.Amount})
	require.NoError(t, err)
}

func TestConcurrentCompletionAppliesOnce(t *testing.T) {
	h := newHarness(t)
	intent := h.prepare(t, studentA, "bundle-10")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.gateway.CompletePayment(context.Background(), CompletePaymentRequest{
				UserID: studentA, PaymentKey: "stub_retry", OrderID: intent.OrderID, Amount: intent.Amount,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			oks++
		}()
	}
	wg.Wait()

	require.Equal(t, 1, oks)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrDuplicatePayment)
	}
	require.Equal(t, int64(10), h.balance(t, studentA))
	h.requireLedgerConsistent(t)
}

func TestPurchasedCreditFundsBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	intent := h.prepare(t, studentA, "single")
	_, err := h.gateway.CompletePayment(ctx, CompletePaymentRequest{UserID: studentA, PaymentKey: "stub_k", OrderID: intent.OrderID, Amount: intent.Amount})
	require.NoError(t, err)

	s := h.newSlot(t, mentorID)
	b := h.book(t, s.ID, studentA)
	require.Equal(t, int64(0), h.balance(t, studentA))

	_, err = h.bookings.Reject(ctx, RejectBookingRequest{BookingID: b.ID, ActorID: mentorID, Reason: "schedule clash"})
	require.NoError(t, err)
	require.Equal(t, int64(1), h.balance(t, studentA))
	h.requireLedgerConsistent(t)
}

func TestCompletePaymentRollsBackWhenCreditFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	intent := h.prepare(t, studentA, "bundle-5")

	// a purchase entry for this order already exists, so the credit step fails
	key := "order:" + intent.OrderID + ":" + domain.LedgerKindPurchase
	require.NoError(t, h.db.Create(&models.LedgerEntry{
		ID:             "pre-existing-purchase",
		UserID:         studentA,
		Delta:          5,
		BalanceAfter:   5,
		Kind:           domain.LedgerKindPurchase,
		IdempotencyKey: &key,
	}).Error)

	_, err := h.gateway.CompletePayment(ctx, CompletePaymentRequest{
		UserID: studentA, PaymentKey: "stub_chrg_rollback", OrderID: intent.OrderID, Amount: intent.Amount,
	})
	require.ErrorIs(t, err, domain.ErrDuplicatePayment)

	var payments int64
	require.NoError(t, h.db.Model(&models.Payment{}).Count(&payments).Error)
	require.Zero(t, payments)

	var order models.PaymentOrder
	require.NoError(t, h.db.Where("id = ?", intent.OrderID).First(&order).Error)
	require.Equal(t, domain.OrderStatusPrepared, order.Status)
	require.Nil(t, order.PaidAt)

	require.Equal(t, int64(0), h.balance(t, studentA))
	require.Empty(t, h.events.Keys())
}
