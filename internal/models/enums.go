package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusDenied    BookingStatus = "Denied"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusCompleted BookingStatus = "Completed"
)

var bookingStatuses = []BookingStatus{
	BookingStatusPending, BookingStatusConfirmed, BookingStatusDenied,
	BookingStatusCancelled, BookingStatusCompleted,
}

// ParseBookingStatus parses a booking status regardless of casing
func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range bookingStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid booking status: %q", s)
}

// IsActive reports whether the booking holds availability rows
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func (s *BookingStatus) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParseBookingStatus(raw)
		*s = parsed
		return err
	})
}

func (s BookingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// StayStatus tracks check-in and check-out progress
type StayStatus string

const (
	StayStatusPending   StayStatus = "Pending"
	StayStatusCompleted StayStatus = "Completed"
)

// ParseStayStatus parses a check-in/out status regardless of casing
func ParseStayStatus(s string) (StayStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StayStatusPending, nil
	case "completed":
		return StayStatusCompleted, nil
	}
	return "", fmt.Errorf("invalid stay status: %q", s)
}

func (s *StayStatus) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParseStayStatus(raw)
		*s = parsed
		return err
	})
}

func (s StayStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentStatus represents the state of a booking payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ParsePaymentStatus parses a payment status; "completed", "paid" and "complete" alias succeeded
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "processing", "requires_payment_method", "requires_action", "open", "unpaid":
		return PaymentStatusPending, nil
	case "succeeded", "completed", "complete", "paid":
		return PaymentStatusSucceeded, nil
	case "failed", "canceled", "cancelled", "expired":
		return PaymentStatusFailed, nil
	case "refunded":
		return PaymentStatusRefunded, nil
	}
	return "", fmt.Errorf("invalid payment status: %q", s)
}

func (s *PaymentStatus) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParsePaymentStatus(raw)
		*s = parsed
		return err
	})
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PayoutStatus represents the state of a host payout
type PayoutStatus string

const (
	PayoutStatusRequested  PayoutStatus = "Requested"
	PayoutStatusProcessing PayoutStatus = "Processing"
	PayoutStatusCompleted  PayoutStatus = "Completed"
	PayoutStatusFailed     PayoutStatus = "Failed"
)

// ParsePayoutStatus parses a payout status regardless of casing
func ParsePayoutStatus(s string) (PayoutStatus, error) {
	for _, st := range []PayoutStatus{PayoutStatusRequested, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid payout status: %q", s)
}

// IsTerminal reports whether no further transfer event may change the payout
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

func (s *PayoutStatus) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParsePayoutStatus(raw)
		*s = parsed
		return err
	})
}

func (s PayoutStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// DiscountType defines how a promotion reduces the price
type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// ParseDiscountType parses a discount type regardless of casing
func ParseDiscountType(s string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return DiscountTypeFixed, nil
	case "percentage", "percent":
		return DiscountTypePercentage, nil
	}
	return "", fmt.Errorf("invalid discount type: %q", s)
}

func (d *DiscountType) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParseDiscountType(raw)
		*d = parsed
		return err
	})
}

func (d DiscountType) Value() (driver.Value, error) {
	return string(d), nil
}

// PolicyTier is the cancellation policy attached to a property
type PolicyTier string

const (
	PolicyFlexible      PolicyTier = "flexible"
	PolicyModerate      PolicyTier = "moderate"
	PolicyStrict        PolicyTier = "strict"
	PolicyNonRefundable PolicyTier = "non_refundable"
)

// ParsePolicyTier parses a cancellation tier regardless of casing
func ParsePolicyTier(s string) (PolicyTier, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch normalized {
	case "flexible":
		return PolicyFlexible, nil
	case "moderate":
		return PolicyModerate, nil
	case "strict":
		return PolicyStrict, nil
	case "non_refundable", "nonrefundable":
		return PolicyNonRefundable, nil
	}
	return "", fmt.Errorf("invalid cancellation policy tier: %q", s)
}

// PropertyStatus is the catalog listing state of a property
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "Active"
	PropertyStatusInactive PropertyStatus = "Inactive"
)

// ParsePropertyStatus parses a property status regardless of casing
func ParsePropertyStatus(s string) (PropertyStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return PropertyStatusActive, nil
	case "inactive":
		return PropertyStatusInactive, nil
	}
	return "", fmt.Errorf("invalid property status: %q", s)
}

func (s *PropertyStatus) Scan(value interface{}) error {
	return scanEnum(value, func(raw string) error {
		parsed, err := ParsePropertyStatus(raw)
		if err != nil {
			// unknown catalog states are never bookable
			parsed = PropertyStatusInactive
		}
		*s = parsed
		return nil
	})
}

func (s PropertyStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func scanEnum(value interface{}, parse func(string) error) error {
	switch v := value.(type) {
	case nil:
		return parse("")
	case string:
		return parse(v)
	case []byte:
		return parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into enum", value)
	}
}
