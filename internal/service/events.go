package service

import (
	"context"
	"time"
)

// EventPublisher hands a committed domain event to the outside world.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// Event is the envelope every published message uses.
type Event struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       any    `json:"data"`
}

func newEvent(key string, data any) Event {
	return Event{
		Event:      key,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       data,
	}
}

type BookingEventData struct {
	BookingID        string `json:"booking_id"`
	SlotID           string `json:"slot_id"`
	MentorID         uint   `json:"mentor_id"`
	RequesterID      uint   `json:"requester_id"`
	State            string `json:"state"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
	MeetingReference string `json:"meeting_reference,omitempty"`
}

type PaymentEventData struct {
	PaymentID       string `json:"payment_id"`
	UserID          uint   `json:"user_id"`
	OrderID         string `json:"order_id"`
	PackageID       string `json:"package_id"`
	Amount          int64  `json:"amount"`
	SessionsGranted int64  `json:"sessions_granted"`
}
