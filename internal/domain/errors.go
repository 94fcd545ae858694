package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart        = &ValidationError{Field: "cart", Message: "cart is empty"}
	ErrOrderNotFound    = errors.New("order not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrMenuItemNotFound = errors.New("menu item not found")

	// ErrCheckoutInProgress rejects a checkout whose idempotency key is held
	// by a submission that has not finished yet.
	ErrCheckoutInProgress = errors.New("checkout already in progress")

	// ErrStaleApplication marks a request or event that targets a status the
	// order already holds or has moved past. It is a no-op, not a failure.
	ErrStaleApplication = errors.New("stale application attempt")

	// ErrEventDelivery ends a subscription whose consumer fell behind or
	// whose upstream transport dropped.
	ErrEventDelivery = errors.New("event delivery failure")
)

// ValidationError is surfaced to the requesting actor and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError is a validation failure produced by Validate.
type TransitionError struct {
	From     Status
	To       Status
	Role     Role
	Decision Decision
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s as %s: %s", e.From, e.To, e.Role, e.Decision.Reason)
}

// Unauthorized reports whether the rejection was caused by the actor's role.
func (e *TransitionError) Unauthorized() bool {
	return e.Decision.Reason == ReasonUnauthorized
}

// PersistenceError wraps a transient store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialWriteError reports an order whose item batch could not be written.
// RolledBack tells whether the order row was removed along with it.
type PartialWriteError struct {
	OrderID    uuid.UUID
	RolledBack bool
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("order %s items not written (rolled back: %t): %v", e.OrderID, e.RolledBack, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Retryable reports whether err is worth one more attempt.
func Retryable(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return true
	}
	var pw *PartialWriteError
	return errors.As(err, &pw) && pw.RolledBack
}
