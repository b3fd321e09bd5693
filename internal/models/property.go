package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Property is the catalog view consumed by the booking engine.
// The catalog owns the row; the engine only reads it.
type Property struct {
	ID                  int64            `json:"id" db:"id"`
	HostID              uuid.UUID        `json:"host_id" db:"host_id"`
	Title               string           `json:"title" db:"title"`
	Status              PropertyStatus   `json:"status" db:"status"`
	PricePerNight       decimal.Decimal  `json:"price_per_night" db:"price_per_night"`
	CleaningFee         decimal.Decimal  `json:"cleaning_fee" db:"cleaning_fee"`
	ServiceFee          decimal.Decimal  `json:"service_fee" db:"service_fee"`
	MinNights           int              `json:"min_nights" db:"min_nights"`
	MaxNights           int              `json:"max_nights" db:"max_nights"`
	InstantBook         bool             `json:"instant_book" db:"instant_book"`
	CancellationPolicy  *string          `json:"cancellation_policy,omitempty" db:"cancellation_policy"`
	CancellationPercent *decimal.Decimal `json:"cancellation_refund_percent,omitempty" db:"cancellation_refund_percent"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// IsBookable reports whether the catalog lists the property
func (p *Property) IsBookable() bool {
	return p.Status == PropertyStatusActive
}

// PolicyName returns the raw cancellation policy name, empty when unset
func (p *Property) PolicyName() string {
	if p.CancellationPolicy == nil {
		return ""
	}
	return *p.CancellationPolicy
}
