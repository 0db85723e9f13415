package allocator

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.  Values are stable and appear
// in API responses.
type Kind string

const (
	// Input validation
	KindInvalidInput Kind = "INVALID_INPUT"
	KindInvalidTier  Kind = "INVALID_TIER"

	// Missing resources
	KindSlotNotFound Kind = "SLOT_NOT_FOUND"
	KindNotFound     Kind = "NOT_FOUND"

	// Eligibility of the container itself
	KindContainerNotEligible Kind = "CONTAINER_NOT_ELIGIBLE"
	KindAlreadyAssigned      Kind = "ALREADY_ASSIGNED"

	// Stack state
	KindStackCapacityExceeded Kind = "STACK_CAPACITY_EXCEEDED"
	KindTierOccupied          Kind = "TIER_OCCUPIED"
	KindTierAlreadyHeld       Kind = "TIER_ALREADY_HELD"
	KindHoldNotFoundOrExpired Kind = "HOLD_NOT_FOUND_OR_EXPIRED"
	KindDuplicateOccupied     Kind = "DUPLICATE_OCCUPIED"
	KindStackOrderViolation   Kind = "STACK_ORDER_VIOLATION"
	KindNotHeld               Kind = "NOT_HELD"
	KindNotOccupied           Kind = "NOT_OCCUPIED"

	// A concurrent transaction won; the caller may retry.
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"

	KindInternal Kind = "INTERNAL"
)

// Retryable reports whether an operation that failed with this kind may
// succeed if simply attempted again.
func (k Kind) Retryable() bool { return k == KindConcurrencyConflict }

// Error is the error type returned by every allocator operation.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the human-readable part of err without the kind prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
