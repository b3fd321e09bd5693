package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProviderEventType is the type of an inbound payment provider webhook
type ProviderEventType string

const (
	EventPaymentSucceeded ProviderEventType = "payment.succeeded"
	EventPaymentFailed    ProviderEventType = "payment.failed"
	EventAccountUpdated   ProviderEventType = "account.updated"
	EventTransferCreated  ProviderEventType = "transfer.created"
	EventTransferPaid     ProviderEventType = "transfer.paid"
	EventTransferFailed   ProviderEventType = "transfer.failed"
)

// Metadata keys the engine embeds in provider objects
const (
	MetadataBookingID = "BookingId"
	MetadataPayoutID  = "PayoutId"
	MetadataHostID    = "HostId"
)

// ProviderEvent is a verified webhook delivery
type ProviderEvent struct {
	ID      string            `json:"id"`
	Type    ProviderEventType `json:"type"`
	Created int64             `json:"created"`
	Data    struct {
		Object ProviderObject `json:"object"`
	} `json:"data"`
}

// ProviderObject is the payload object of an event. Only the fields the
// engine reads are modeled.
type ProviderObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Destination    string            `json:"destination,omitempty"`
	FailureMessage string            `json:"failure_message,omitempty"`
	PaymentMethod  string            `json:"payment_method_type,omitempty"`
	ChargesEnabled bool              `json:"charges_enabled,omitempty"`
	PayoutsEnabled bool              `json:"payouts_enabled,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

// MetadataInt64 reads a numeric metadata value; keys match case-insensitively
func (o ProviderObject) MetadataInt64(key string) (int64, bool) {
	raw, ok := o.MetadataString(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// MetadataString reads a metadata value; keys match case-insensitively
func (o ProviderObject) MetadataString(key string) (string, bool) {
	for k, v := range o.Metadata {
		if strings.EqualFold(k, key) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// MinorToDecimal converts an amount in minor units to a decimal
func MinorToDecimal(amount int64, minorUnits int32) decimal.Decimal {
	return decimal.New(amount, -minorUnits)
}

// DecimalToMinor converts a decimal to minor units, rounding half away from zero
func DecimalToMinor(amount decimal.Decimal, minorUnits int32) int64 {
	return amount.Shift(minorUnits).Round(0).IntPart()
}
