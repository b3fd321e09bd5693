package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingPayment is one provider transaction settled against a booking.
// TransactionID is unique and serves as the idempotency key.
type BookingPayment struct {
	ID                int64           `json:"id" db:"id"`
	BookingID         int64           `json:"booking_id" db:"booking_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Currency          string          `json:"currency" db:"currency"`
	PaymentMethodType string          `json:"payment_method_type" db:"payment_method_type"`
	Status            PaymentStatus   `json:"status" db:"status"`
	TransactionID     string          `json:"transaction_id" db:"transaction_id"`
	RefundedAmount    decimal.Decimal `json:"refunded_amount" db:"refunded_amount"`
	Credited          bool            `json:"-" db:"credited"`
	CreditedAmount    decimal.Decimal `json:"-" db:"credited_amount"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Refundable returns the amount that can still be refunded
func (p *BookingPayment) Refundable() decimal.Decimal {
	if p.Status != PaymentStatusSucceeded && p.Status != PaymentStatusRefunded {
		return decimal.Zero
	}
	rest := p.Amount.Sub(p.RefundedAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Settle applies a provider status to the payment. It reports whether this
// call moved the payment into succeeded, which is the only trigger for
// crediting host earnings.
func (p *BookingPayment) Settle(status PaymentStatus, now time.Time) (next *BookingPayment, enteredSucceeded bool) {
	copied := *p
	if p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded {
		return &copied, false
	}
	copied.Status = status
	copied.UpdatedAt = now
	return &copied, status == PaymentStatusSucceeded
}

// ApplyRefund records a refunded amount, capped at what remains
func (p *BookingPayment) ApplyRefund(amount decimal.Decimal, now time.Time) (*BookingPayment, decimal.Decimal) {
	copied := *p
	applied := decimal.Min(amount, p.Refundable())
	if !applied.IsPositive() {
		return &copied, decimal.Zero
	}
	copied.RefundedAmount = p.RefundedAmount.Add(applied)
	if copied.RefundedAmount.GreaterThanOrEqual(p.Amount) {
		copied.Status = PaymentStatusRefunded
	}
	copied.UpdatedAt = now
	return &copied, applied
}

// AmountPaid sums what guests have paid and not been refunded
func AmountPaid(payments []BookingPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Refundable())
	}
	return total
}
