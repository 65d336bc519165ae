package services

import (
	"errors"
	"fmt"
)

// Failure reasons attached to failed checks, logs, metrics and events.
const (
	ReasonOrderLookup    = "order_lookup"
	ReasonDiscount       = "discount"
	ReasonMissingContact = "missing_contact"
	ReasonSend           = "send"
	ReasonPersistence    = "persistence"
	ReasonPanic          = "panic"
	ReasonUnknown        = "unknown"
)

// ExternalServiceError wraps a failed call to the order system.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IssuerError means no discount code could be minted.
type IssuerError struct {
	Step string
	Err  error
}

func (e *IssuerError) Error() string {
	return fmt.Sprintf("discount issuer failed at %s: %v", e.Step, e.Err)
}

func (e *IssuerError) Unwrap() error { return e.Err }

// SendError is a rejected or undeliverable reminder.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("reminder send failed: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// MissingContactError means the cart has no phone number to text. The checker sets
// CartID. The Notifier only sees a contact, so its precondition error leaves CartID
// empty and callers that know the cart must add it.
type MissingContactError struct {
	CartID string
}

func (e *MissingContactError) Error() string {
	if e.CartID == "" {
		return "no customer contact available"
	}
	return fmt.Sprintf("no customer contact available for cart %s", e.CartID)
}

// PersistenceError is a failed reminder log write.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reminder log write failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking check.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("check panicked: %v", e.Value)
}

// Reason classifies err into one of the Reason constants.
func Reason(err error) string {
	var (
		extErr     *ExternalServiceError
		issuerErr  *IssuerError
		contactErr *MissingContactError
		sendErr    *SendError
		persistErr *PersistenceError
		panicErr   *PanicError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &contactErr):
		return ReasonMissingContact
	case errors.As(err, &issuerErr):
		return ReasonDiscount
	case errors.As(err, &sendErr):
		return ReasonSend
	case errors.As(err, &persistErr):
		return ReasonPersistence
	case errors.As(err, &extErr):
		return ReasonOrderLookup
	case errors.As(err, &panicErr):
		return ReasonPanic
	default:
		return ReasonUnknown
	}
}
