package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is a guest's reservation of an inclusive range of nights
type Booking struct {
	ID                int64           `json:"id" db:"id"`
	PropertyID        int64           `json:"property_id" db:"property_id"`
	GuestID           uuid.UUID       `json:"guest_id" db:"guest_id"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	EndDate           time.Time       `json:"end_date" db:"end_date"`
	Status            BookingStatus   `json:"status" db:"status"`
	CheckInStatus     StayStatus      `json:"check_in_status" db:"check_in_status"`
	CheckOutStatus    StayStatus      `json:"check_out_status" db:"check_out_status"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	PromotionID       *int64          `json:"promotion_id,omitempty" db:"promotion_id"`
	PromotionRedeemed bool            `json:"-" db:"promotion_redeemed"`
	CancelledBy       *string         `json:"cancelled_by,omitempty" db:"cancelled_by"`
	ConfirmedAt       *time.Time      `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Nights returns the number of nights the booking holds
func (b *Booking) Nights() int {
	return NightsBetween(b.StartDate, b.EndDate)
}

// EffectiveStatus resolves the lazy Completed transition: a Confirmed
// booking whose last night is before today reads as Completed.
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.Status == BookingStatusConfirmed && DateOnly(b.EndDate).Before(DateOnly(now)) {
		return BookingStatusCompleted
	}
	return b.Status
}

// Resolved returns a copy whose Status is the effective status at now
func (b *Booking) Resolved(now time.Time) *Booking {
	next := *b
	next.Status = b.EffectiveStatus(now)
	return &next
}

// NeedsPromotionRedemption reports whether confirming must consume a promotion use
func (b *Booking) NeedsPromotionRedemption() bool {
	return b.Status == BookingStatusConfirmed && b.PromotionID != nil && *b.PromotionID > 0 && !b.PromotionRedeemed
}

// Confirm moves a Pending booking to Confirmed
func (b *Booking) Confirm(now time.Time) (*Booking, error) {
	switch b.EffectiveStatus(now) {
	case BookingStatusPending:
	case BookingStatusConfirmed:
		return nil, NewConflictError("BOOKING_ALREADY_CONFIRMED", "booking already confirmed")
	default:
		return nil, invalidTransition(b.EffectiveStatus(now), BookingStatusConfirmed)
	}
	next := *b
	next.Status = BookingStatusConfirmed
	next.ConfirmedAt = &now
	next.UpdatedAt = now
	return &next, nil
}

// Deny moves a Pending booking to Denied
func (b *Booking) Deny(now time.Time) (*Booking, error) {
	if st := b.EffectiveStatus(now); st != BookingStatusPending {
		return nil, invalidTransition(st, BookingStatusDenied)
	}
	next := *b
	next.Status = BookingStatusDenied
	next.UpdatedAt = now
	return &next, nil
}

// Cancel moves an active booking to Cancelled
func (b *Booking) Cancel(now time.Time, by string) (*Booking, error) {
	if st := b.EffectiveStatus(now); !st.IsActive() {
		return nil, invalidTransition(st, BookingStatusCancelled)
	}
	if b.CheckInStatus == StayStatusCompleted {
		return nil, NewConflictError("BOOKING_CHECKED_IN", "booking cannot be cancelled after check-in")
	}
	next := *b
	next.Status = BookingStatusCancelled
	next.CancelledBy = &by
	next.CancelledAt = &now
	next.UpdatedAt = now
	return &next, nil
}

// Reschedule replaces the range and price of an active booking
func (b *Booking) Reschedule(now, start, end time.Time, total decimal.Decimal, promotionID *int64) (*Booking, error) {
	if st := b.EffectiveStatus(now); !st.IsActive() {
		return nil, NewConflictError("BOOKING_NOT_EDITABLE", "only pending or confirmed bookings can be edited")
	}
	if b.CheckInStatus == StayStatusCompleted {
		return nil, NewConflictError("BOOKING_CHECKED_IN", "booking cannot be edited after check-in")
	}
	next := *b
	next.StartDate = DateOnly(start)
	next.EndDate = DateOnly(end)
	next.TotalAmount = total
	if !samePromotion(b.PromotionID, promotionID) {
		next.PromotionID = promotionID
		next.PromotionRedeemed = false
	}
	next.UpdatedAt = now
	return &next, nil
}

// CheckIn records guest arrival
func (b *Booking) CheckIn(now time.Time) (*Booking, error) {
	if st := b.EffectiveStatus(now); st != BookingStatusConfirmed {
		return nil, NewConflictError("CHECK_IN_NOT_ALLOWED", "only confirmed bookings can be checked in")
	}
	if DateOnly(now).Before(DateOnly(b.StartDate)) {
		return nil, NewValidationError("CHECK_IN_TOO_EARLY", "check-in is not possible before the start date")
	}
	if b.CheckInStatus == StayStatusCompleted {
		return nil, NewConflictError("ALREADY_CHECKED_IN", "booking already checked in")
	}
	next := *b
	next.CheckInStatus = StayStatusCompleted
	next.UpdatedAt = now
	return &next, nil
}

// CheckOut records guest departure
func (b *Booking) CheckOut(now time.Time) (*Booking, error) {
	if b.CheckInStatus != StayStatusCompleted {
		return nil, NewConflictError("NOT_CHECKED_IN", "booking has not been checked in")
	}
	if b.CheckOutStatus == StayStatusCompleted {
		return nil, NewConflictError("ALREADY_CHECKED_OUT", "booking already checked out")
	}
	next := *b
	next.CheckOutStatus = StayStatusCompleted
	next.UpdatedAt = now
	return &next, nil
}

// CanReview reports whether the guest may leave a review
func (b *Booking) CanReview(now time.Time, hasReview bool) bool {
	return b.EffectiveStatus(now) == BookingStatusCompleted && !hasReview
}

func samePromotion(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func invalidTransition(from, to BookingStatus) *DomainError {
	return NewConflictError("INVALID_STATUS_TRANSITION", "cannot move booking from "+string(from)+" to "+string(to))
}

// BookingDetail is the read projection returned to guests and hosts
type BookingDetail struct {
	Booking
	Nights     int             `json:"nights"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}
