package domain

const (
	RoleMentor  = "MENTOR"
	RoleStudent = "STUDENT"
	RoleAdmin   = "ADMIN"
)

const (
	BookingStatePending   = "PENDING"
	BookingStateConfirmed = "CONFIRMED"
	BookingStateRejected  = "REJECTED"
	BookingStateCancelled = "CANCELLED"
	BookingStateCompleted = "COMPLETED"
)

const (
	LedgerKindPurchase = "PURCHASE"
	LedgerKindUse      = "USE"
	LedgerKindRefund   = "REFUND"
)

const (
	OrderStatusPrepared = "PREPARED"
	OrderStatusPaid     = "PAID"
)

// SessionCost is the number of credits one booking consumes.
const SessionCost int64 = 1

// DefaultSlotCapacity keeps sessions one-to-one.
const DefaultSlotCapacity = 1

// Event routing keys published after a committed state change.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentCompleted = "payment.completed"
)

// bookingTransitions lists the states each state may move to.
var bookingTransitions = map[string][]string{
	BookingStatePending:   {BookingStateConfirmed, BookingStateRejected, BookingStateCancelled},
	BookingStateConfirmed: {BookingStateCompleted, BookingStateCancelled},
}

// CanTransition reports whether a booking in state from may move to state to.
func CanTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourceStates returns every state from which to is reachable.
func SourceStates(to string) []string {
	var out []string
	for from, targets := range bookingTransitions {
		for _, s := range targets {
			if s == to {
				out = append(out, from)
			}
		}
	}
	return out
}
