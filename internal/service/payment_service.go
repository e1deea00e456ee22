package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/internal/repository"
	"mentorly/pkg/payment"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// PaymentGateway sells credit packages. A purchase is applied at most once per
// payment key and per order, however often completion is retried.
type PaymentGateway struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	packages *repository.PackageRepository
	ledger   *CreditLedger
	verifier payment.Verifier
	currency string
	events   EventPublisher
	logger   *slog.Logger
}

func NewPaymentGateway(
	db *gorm.DB,
	ledger *CreditLedger,
	verifier payment.Verifier,
	currency string,
	events EventPublisher,
	logger *slog.Logger,
) *PaymentGateway {
	if events == nil {
		events = NoopPublisher{}
	}
	return &PaymentGateway{
		db:       db,
		payments: repository.NewPaymentRepository(db),
		packages: repository.NewPackageRepository(db),
		ledger:   ledger,
		verifier: verifier,
		currency: currency,
		events:   events,
		logger:   logger,
	}
}

type PreparePaymentRequest struct {
	UserID    uint
	PackageID string
}

type PaymentIntent struct {
	OrderID         string `json:"order_id"`
	PackageID       string `json:"package_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	SessionsGranted int64  `json:"sessions_granted"`
}

type CompletePaymentRequest struct {
	UserID     uint
	PaymentKey string
	OrderID    string
	Amount     int64
}

func (g *PaymentGateway) Packages(ctx context.Context) ([]models.CreditPackage, error) {
	return g.packages.ListActive(ctx)
}

// PreparePayment issues an order id and remembers which package it pays for.
func (g *PaymentGateway) PreparePayment(ctx context.Context, req PreparePaymentRequest) (*PaymentIntent, error) {
	ctx = context.WithoutCancel(ctx)
	pkg, err := g.packages.Get(ctx, req.PackageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("package %s: %w", req.PackageID, domain.ErrPackageNotFound)
	}
	if err != nil {
		return nil, err
	}
	order := &models.PaymentOrder{
		ID:        "ord_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    req.UserID,
		PackageID: pkg.ID,
		Amount:    pkg.Price,
		Sessions:  pkg.Sessions,
		Status:    domain.OrderStatusPrepared,
	}
	if err := g.payments.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	g.logger.Info("payment prepared", "order_id", order.ID, "user_id", req.UserID, "package_id", pkg.ID)
	return &PaymentIntent{
		OrderID:         order.ID,
		PackageID:       pkg.ID,
		Amount:          pkg.Price,
		Currency:        g.currency,
		SessionsGranted: pkg.Sessions,
	}, nil
}

// CompletePayment verifies the charge and grants the order's sessions. The
// payment row and the PURCHASE entry commit together or not at all.
func (g *PaymentGateway) CompletePayment(ctx context.Context, req CompletePaymentRequest) (p *models.Payment, err error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "payment.complete",
		trace.WithAttributes(attribute.String("order.id", req.OrderID)))
	defer func() { endSpan(span, err) }()

	req.PaymentKey = strings.TrimSpace(req.PaymentKey)
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.PaymentKey == "" || req.OrderID == "" {
		return nil, domain.ErrMissingPaymentRef
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	dup, err := g.payments.ExistsByKeyOrOrder(ctx, req.PaymentKey, req.OrderID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("order %s: %w", req.OrderID, domain.ErrDuplicatePayment)
	}
	order, err := g.payments.GetOrder(ctx, req.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", req.OrderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != req.UserID {
		return nil, domain.ErrNotOrderOwner
	}
	if order.Amount != req.Amount {
		return nil, fmt.Errorf("order %s costs %d, got %d: %w", order.ID, order.Amount, req.Amount, domain.ErrAmountMismatch)
	}
	if err := g.verifier.VerifyCharge(ctx, payment.Charge{
		PaymentKey: req.PaymentKey,
		OrderID:    order.ID,
		Amount:     order.Amount,
		Currency:   g.currency,
	}); err != nil {
		if errors.Is(err, payment.ErrNotPaid) {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrPaymentNotPaid)
		}
		return nil, fmt.Errorf("verify charge: %w", err)
	}

	now := time.Now()
	p = &models.Payment{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		PaymentKey:      req.PaymentKey,
		OrderID:         order.ID,
		PackageID:       order.PackageID,
		Amount:          order.Amount,
		SessionsGranted: order.Sessions,
		PaidAt:          now,
	}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := g.payments.WithTx(tx)
		dup, err := payments.ExistsByKeyOrOrder(ctx, p.PaymentKey, p.OrderID)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicatePayment)
		}
		if err := payments.Create(ctx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicatePayment)
			}
			return err
		}
		ok, err := payments.MarkOrderPaid(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("order %s already paid: %w", order.ID, domain.ErrDuplicatePayment)
		}
		_, err = g.ledger.WithTx(tx).Credit(ctx, CreditRequest{
			UserID:         req.UserID,
			Amount:         order.Sessions,
			Kind:           domain.LedgerKindPurchase,
			IdempotencyKey: "order:" + order.ID + ":" + domain.LedgerKindPurchase,
			Description:    "package " + order.PackageID,
		})
		if errors.Is(err, domain.ErrDuplicateLedgerEntry) {
			return fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicatePayment)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("payment completed",
		"payment_id", p.ID,
		"order_id", p.OrderID,
		"user_id", p.UserID,
		"sessions", p.SessionsGranted,
	)
	evt := newEvent(domain.EventPaymentCompleted, PaymentEventData{
		PaymentID:       p.ID,
		UserID:          p.UserID,
		OrderID:         p.OrderID,
		PackageID:       p.PackageID,
		Amount:          p.Amount,
		SessionsGranted: p.SessionsGranted,
	})
	if err := g.events.PublishJSON(ctx, domain.EventPaymentCompleted, evt); err != nil {
		g.logger.Warn("event not published", "routing_key", domain.EventPaymentCompleted, "payment_id", p.ID, "error", err)
	}
	return p, nil
}

func (g *PaymentGateway) History(ctx context.Context, userID uint, limit, offset int) ([]models.Payment, error) {
	return g.payments.ListByUser(ctx, userID, limit, offset)
}
