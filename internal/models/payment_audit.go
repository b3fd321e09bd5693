package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventCheckoutCreated        PaymentEventType = "checkout_created"
	PaymentEventConfirmRequested       PaymentEventType = "confirm_requested"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventEarningsCredited       PaymentEventType = "earnings_credited"
	PaymentEventRefundInitiated        PaymentEventType = "refund_initiated"
	PaymentEventRefundCompleted        PaymentEventType = "refund_completed"
	PaymentEventTransferUpdated        PaymentEventType = "transfer_updated"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventIntegrityViolation     PaymentEventType = "integrity_violation"
	PaymentEventError                  PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend         PaymentEventSource = "backend"
	PaymentSourceProviderWebhook PaymentEventSource = "provider_webhook"
	PaymentSourceProviderAPI     PaymentEventSource = "provider_api"
	PaymentSourceUser            PaymentEventSource = "user"
	PaymentSourceSystem          PaymentEventSource = "system"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
// Returns JSON as string for compatibility with pgx simple protocol mode
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID *int64    `json:"booking_id,omitempty" db:"booking_id"`
	PayoutID  *int64    `json:"payout_id,omitempty" db:"payout_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string          `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool            `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus         *string `json:"payment_status,omitempty" db:"payment_status"`
	ProviderTransactionID *string `json:"provider_transaction_id,omitempty" db:"provider_transaction_id"`
	ProviderEventID       *string `json:"provider_event_id,omitempty" db:"provider_event_id"`

	Payload      JSONB   `json:"payload,omitempty" db:"payload"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	IsDuplicate    bool    `json:"is_duplicate" db:"is_duplicate"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	IPAddress *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the event refers to
func (pa *PaymentAudit) SetBooking(bookingID int64) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetPayout sets the payout the event refers to
func (pa *PaymentAudit) SetPayout(payoutID int64) *PaymentAudit {
	pa.PayoutID = &payoutID
	return pa
}

// SetTransaction sets the provider transaction id
func (pa *PaymentAudit) SetTransaction(txID string) *PaymentAudit {
	if txID != "" {
		pa.ProviderTransactionID = &txID
	}
	return pa
}

// SetEvent sets the provider event id
func (pa *PaymentAudit) SetEvent(eventID string) *PaymentAudit {
	if eventID != "" {
		pa.ProviderEventID = &eventID
	}
	return pa
}

// SetAmounts sets and verifies amounts - returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received decimal.Decimal, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency
	match := expected.Equal(received)
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus sets the payment status reported by the provider
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}

// SetPayload stores the raw event payload
func (pa *PaymentAudit) SetPayload(payload map[string]interface{}) *PaymentAudit {
	pa.Payload = JSONB(payload)
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}

// SetIdempotencyKey sets the key used for deduplication
func (pa *PaymentAudit) SetIdempotencyKey(key string) *PaymentAudit {
	pa.IdempotencyKey = &key
	return pa
}

// MarkAsDuplicate marks this event as a duplicate
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}
