package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("mentorly/internal/service")

// BookingOrchestrator runs the booking lifecycle. Every transition that moves
// credit or occupancy does so in the same transaction as the state change.
type BookingOrchestrator struct {
	db       *gorm.DB
	bookings *repository.BookingRepository
	catalog  *SessionCatalog
	ledger   *CreditLedger
	meetings MeetingService
	events   EventPublisher
	logger   *slog.Logger
}

func NewBookingOrchestrator(
	db *gorm.DB,
	catalog *SessionCatalog,
	ledger *CreditLedger,
	meetings MeetingService,
	events EventPublisher,
	logger *slog.Logger,
) *BookingOrchestrator {
	if events == nil {
		events = NoopPublisher{}
	}
	return &BookingOrchestrator{
		db:       db,
		bookings: repository.NewBookingRepository(db),
		catalog:  catalog,
		ledger:   ledger,
		meetings: meetings,
		events:   events,
		logger:   logger,
	}
}

type CreateBookingRequest struct {
	SlotID      string
	RequesterID uint
	Message     string
}

type ConfirmBookingRequest struct {
	BookingID string
	ActorID   uint
}

type RejectBookingRequest struct {
	BookingID string
	ActorID   uint
	Reason    string
}

type CancelBookingRequest struct {
	BookingID string
	ActorID   uint
}

type CompleteBookingRequest struct {
	BookingID string
	ActorID   uint
}

func ledgerKey(bookingID, kind string) string {
	return "booking:" + bookingID + ":" + kind
}

// Create reserves the slot, spends one credit and records a PENDING booking
// as one unit of work. Any failure leaves occupancy and balance untouched.
func (o *BookingOrchestrator) Create(ctx context.Context, req CreateBookingRequest) (b *models.Booking, err error) {
	ctx, span := o.start(ctx, "booking.create", attribute.String("slot.id", req.SlotID))
	defer func() { endSpan(span, err) }()

	b = &models.Booking{
		ID:          uuid.NewString(),
		SlotID:      req.SlotID,
		RequesterID: req.RequesterID,
		State:       domain.BookingStatePending,
		Message:     strings.TrimSpace(req.Message),
	}
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := o.catalog.WithTx(tx)
		if err := catalog.ReserveSlot(ctx, req.SlotID); err != nil {
			return err
		}
		slot, err := catalog.Get(ctx, req.SlotID)
		if err != nil {
			return err
		}
		b.MentorID = slot.OwnerID
		if _, err := o.ledger.WithTx(tx).Debit(ctx, DebitRequest{
			UserID:           req.RequesterID,
			Amount:           domain.SessionCost,
			RelatedBookingID: b.ID,
			IdempotencyKey:   ledgerKey(b.ID, domain.LedgerKindUse),
			Description:      "session booking",
		}); err != nil {
			return err
		}
		return o.bookings.WithTx(tx).Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info("booking created", "booking_id", b.ID, "slot_id", b.SlotID, "requester_id", b.RequesterID)
	o.publish(ctx, domain.EventBookingCreated, b)
	return b, nil
}

// Confirm accepts a PENDING booking on behalf of the slot owner and attaches a meeting.
func (o *BookingOrchestrator) Confirm(ctx context.Context, req ConfirmBookingRequest) (b *models.Booking, err error) {
	ctx, span := o.start(ctx, "booking.confirm", attribute.String("booking.id", req.BookingID))
	defer func() { endSpan(span, err) }()

	b, slot, err := o.load(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if slot.OwnerID != req.ActorID {
		return nil, domain.ErrNotSlotOwner
	}
	if !domain.CanTransition(b.State, domain.BookingStateConfirmed) {
		return nil, fmt.Errorf("confirm booking in state %s: %w", b.State, domain.ErrInvalidStateTransition)
	}
	ref, err := o.meetings.CreateMeeting(ctx, b.ID, []string{
		strconv.FormatUint(uint64(slot.OwnerID), 10),
		strconv.FormatUint(uint64(b.RequesterID), 10),
	})
	if err != nil {
		return nil, fmt.Errorf("create meeting for booking %s: %w", b.ID, err)
	}
	ok, err := o.bookings.Transition(ctx, b.ID, []string{domain.BookingStatePending}, domain.BookingStateConfirmed,
		map[string]interface{}{"meeting_reference": ref})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("confirm booking %s: %w", b.ID, domain.ErrInvalidStateTransition)
	}
	b.State = domain.BookingStateConfirmed
	b.MeetingReference = ref
	o.logger.Info("booking confirmed", "booking_id", b.ID)
	o.publish(ctx, domain.EventBookingConfirmed, b)
	return b, nil
}

// Reject declines a PENDING booking with a reason, refunding the credit and freeing the slot.
func (o *BookingOrchestrator) Reject(ctx context.Context, req RejectBookingRequest) (b *models.Booking, err error) {
	ctx, span := o.start(ctx, "booking.reject", attribute.String("booking.id", req.BookingID))
	defer func() { endSpan(span, err) }()

	b, slot, err := o.load(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if slot.OwnerID != req.ActorID {
		return nil, domain.ErrNotSlotOwner
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}
	if err := o.unwind(ctx, b, domain.BookingStateRejected, map[string]interface{}{"rejection_reason": reason}); err != nil {
		return nil, err
	}
	b.RejectionReason = reason
	o.logger.Info("booking rejected", "booking_id", b.ID)
	o.publish(ctx, domain.EventBookingRejected, b)
	return b, nil
}

// Cancel withdraws a PENDING or CONFIRMED booking on behalf of its requester.
func (o *BookingOrchestrator) Cancel(ctx context.Context, req CancelBookingRequest) (b *models.Booking, err error) {
	ctx, span := o.start(ctx, "booking.cancel", attribute.String("booking.id", req.BookingID))
	defer func() { endSpan(span, err) }()

	b, _, err = o.load(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.RequesterID != req.ActorID {
		return nil, domain.ErrNotRequester
	}
	if err := o.unwind(ctx, b, domain.BookingStateCancelled, nil); err != nil {
		return nil, err
	}
	o.logger.Info("booking cancelled", "booking_id", b.ID)
	o.publish(ctx, domain.EventBookingCancelled, b)
	return b, nil
}

// Complete marks a CONFIRMED session as held. Credit stays spent.
func (o *BookingOrchestrator) Complete(ctx context.Context, req CompleteBookingRequest) (b *models.Booking, err error) {
	ctx, span := o.start(ctx, "booking.complete", attribute.String("booking.id", req.BookingID))
	defer func() { endSpan(span, err) }()

	b, slot, err := o.load(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if slot.OwnerID != req.ActorID {
		return nil, domain.ErrNotSlotOwner
	}
	if !domain.CanTransition(b.State, domain.BookingStateCompleted) {
		return nil, fmt.Errorf("complete booking in state %s: %w", b.State, domain.ErrInvalidStateTransition)
	}
	ok, err := o.bookings.Transition(ctx, b.ID, []string{domain.BookingStateConfirmed}, domain.BookingStateCompleted, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("complete booking %s: %w", b.ID, domain.ErrInvalidStateTransition)
	}
	b.State = domain.BookingStateCompleted
	o.logger.Info("booking completed", "booking_id", b.ID)
	o.publish(ctx, domain.EventBookingCompleted, b)
	return b, nil
}

// unwind moves b into a terminal state that returns the credit and the seat.
func (o *BookingOrchestrator) unwind(ctx context.Context, b *models.Booking, to string, extra map[string]interface{}) error {
	if !domain.CanTransition(b.State, to) {
		return fmt.Errorf("move booking from %s to %s: %w", b.State, to, domain.ErrInvalidStateTransition)
	}
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := o.bookings.WithTx(tx).Transition(ctx, b.ID, domain.SourceStates(to), to, extra)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("move booking %s to %s: %w", b.ID, to, domain.ErrInvalidStateTransition)
		}
		if _, err := o.ledger.WithTx(tx).Credit(ctx, CreditRequest{
			UserID:           b.RequesterID,
			Amount:           domain.SessionCost,
			Kind:             domain.LedgerKindRefund,
			RelatedBookingID: b.ID,
			IdempotencyKey:   ledgerKey(b.ID, domain.LedgerKindRefund),
			Description:      "booking " + strings.ToLower(to),
		}); err != nil {
			return err
		}
		return o.catalog.WithTx(tx).ReleaseSlot(ctx, b.SlotID)
	})
	if err != nil {
		return err
	}
	b.State = to
	return nil
}

// Get returns a booking to one of its two participants.
func (o *BookingOrchestrator) Get(ctx context.Context, bookingID string, actorID uint) (*models.Booking, error) {
	b, err := o.bookings.GetWithSlot(ctx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrBookingNotFound)
	}
	if err != nil {
		return nil, err
	}
	if b.RequesterID != actorID && b.MentorID != actorID {
		return nil, domain.ErrNotBookingMember
	}
	return b, nil
}

// ListForUser lists bookings a mentor received or a student made.
func (o *BookingOrchestrator) ListForUser(ctx context.Context, userID uint, role, state string, limit, offset int) ([]models.Booking, error) {
	if role == domain.RoleMentor {
		return o.bookings.ListByMentor(ctx, userID, state, limit, offset)
	}
	return o.bookings.ListByRequester(ctx, userID, state, limit, offset)
}

// PendingCount is the number of requests waiting on the mentor's answer.
func (o *BookingOrchestrator) PendingCount(ctx context.Context, mentorID uint) (int64, error) {
	return o.bookings.CountPendingByMentor(ctx, mentorID)
}

func (o *BookingOrchestrator) load(ctx context.Context, bookingID string) (*models.Booking, *models.Slot, error) {
	b, err := o.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrBookingNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	slot, err := o.catalog.Get(ctx, b.SlotID)
	if err != nil {
		return nil, nil, err
	}
	return b, slot, nil
}

func (o *BookingOrchestrator) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(context.WithoutCancel(ctx), name, trace.WithAttributes(attrs...))
}

func (o *BookingOrchestrator) publish(ctx context.Context, key string, b *models.Booking) {
	evt := newEvent(key, BookingEventData{
		BookingID:        b.ID,
		SlotID:           b.SlotID,
		MentorID:         b.MentorID,
		RequesterID:      b.RequesterID,
		State:            b.State,
		RejectionReason:  b.RejectionReason,
		MeetingReference: b.MeetingReference,
	})
	if err := o.events.PublishJSON(ctx, key, evt); err != nil {
		o.logger.Warn("event not published", "routing_key", key, "booking_id", b.ID, "error", err)
	}
}

// endSpan records err on span; domain refusals are not span errors.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if domain.KindOf(err) == domain.KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
