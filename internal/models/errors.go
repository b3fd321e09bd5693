package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so callers can map it to a response
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindAuthorization    ErrorKind = "authorization"
	KindNotFound         ErrorKind = "not_found"
	KindExternalProvider ErrorKind = "external_provider"
	KindIntegrity        ErrorKind = "integrity"
)

// DomainError is returned by services for every expected failure.
// A DomainError guarantees that no state was mutated by the failing call.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed or out-of-policy input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewConflictError reports a request that collides with current state
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// NewAuthorizationError reports an actor acting on a resource it does not own
func NewAuthorizationError(code, message string) *DomainError {
	return &DomainError{Kind: KindAuthorization, Code: code, Message: message}
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewExternalProviderError wraps a payment provider failure
func NewExternalProviderError(message string, err error) *DomainError {
	return &DomainError{Kind: KindExternalProvider, Code: "PROVIDER_ERROR", Message: message, Err: err}
}

// NewIntegrityViolation reports an event that cannot be applied without breaking an invariant
func NewIntegrityViolation(code, message string) *DomainError {
	return &DomainError{Kind: KindIntegrity, Code: code, Message: message}
}

// ErrorKindOf returns the kind of a domain error, or "" for infrastructure errors
func ErrorKindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return ErrorKindOf(err) == kind
}

// Common domain errors
var (
	ErrRangeNotAvailable   = NewConflictError("DATES_NOT_AVAILABLE", "property is not available for the selected dates")
	ErrBookingNotFound     = NewNotFoundError("BOOKING_NOT_FOUND", "booking not found")
	ErrPropertyNotFound    = NewNotFoundError("PROPERTY_NOT_FOUND", "property not found")
	ErrPayoutNotFound      = NewNotFoundError("PAYOUT_NOT_FOUND", "payout not found")
	ErrNotBookingGuest     = NewAuthorizationError("NOT_BOOKING_OWNER", "booking belongs to another guest")
	ErrNotPropertyHost     = NewAuthorizationError("NOT_PROPERTY_HOST", "property belongs to another host")
	ErrInsufficientBalance = NewConflictError("INSUFFICIENT_BALANCE", "payout amount exceeds available balance")
)
