package domain

import "errors"

// Kind classifies a domain failure so callers can map it to a transport status.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindStateConflict Kind = "STATE_CONFLICT"
	KindDuplicate     Kind = "DUPLICATE"
	KindAuthorization Kind = "AUTHORIZATION"
	KindInternal      Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidSchedule = newError(KindValidation, "INVALID_SCHEDULE", "slot must start on an exact hour")
	ErrInvalidDuration = newError(KindValidation, "INVALID_DURATION", "duration must be positive")
	ErrInvalidAmount   = newError(KindValidation, "INVALID_AMOUNT", "amount must be positive")
	ErrInvalidKind     = newError(KindValidation, "INVALID_KIND", "unsupported ledger entry kind")
	ErrReasonRequired  = newError(KindValidation, "REASON_REQUIRED", "rejection reason is required")
	ErrAmountMismatch  = newError(KindValidation, "AMOUNT_MISMATCH", "paid amount does not match the order")
	ErrPaymentNotPaid  = newError(KindValidation, "PAYMENT_NOT_VERIFIED", "payment could not be verified with the provider")

	ErrMissingPaymentRef = newError(KindValidation, "PAYMENT_REF_REQUIRED", "payment key and order id are required")

	ErrSlotNotFound    = newError(KindNotFound, "SLOT_NOT_FOUND", "slot not found")
	ErrBookingNotFound = newError(KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrOrderNotFound   = newError(KindNotFound, "ORDER_NOT_FOUND", "payment order not found")
	ErrPackageNotFound = newError(KindNotFound, "PACKAGE_NOT_FOUND", "credit package not found")

	ErrSlotFull               = newError(KindStateConflict, "SLOT_FULL", "slot is fully booked")
	ErrSlotInactive           = newError(KindStateConflict, "SLOT_INACTIVE", "slot is not open for booking")
	ErrInsufficientCredit     = newError(KindStateConflict, "INSUFFICIENT_CREDIT", "insufficient session credit")
	ErrInvalidStateTransition = newError(KindStateConflict, "INVALID_STATE_TRANSITION", "booking cannot move to the requested state")

	ErrDuplicatePayment     = newError(KindDuplicate, "DUPLICATE_PAYMENT", "payment already processed")
	ErrDuplicateLedgerEntry = newError(KindDuplicate, "DUPLICATE_LEDGER_ENTRY", "ledger entry already recorded")

	ErrNotSlotOwner     = newError(KindAuthorization, "NOT_SLOT_OWNER", "only the slot owner may do this")
	ErrNotRequester     = newError(KindAuthorization, "NOT_REQUESTER", "only the requester may do this")
	ErrNotOrderOwner    = newError(KindAuthorization, "NOT_ORDER_OWNER", "order belongs to another user")
	ErrNotBookingMember = newError(KindAuthorization, "NOT_BOOKING_MEMBER", "booking belongs to other users")
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError extracts the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}
