package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a discount code with a usage cap and validity window
type Promotion struct {
	ID           int64           `json:"id" db:"id"`
	Code         string          `json:"code" db:"code"`
	DiscountType DiscountType    `json:"discount_type" db:"discount_type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      time.Time       `json:"end_date" db:"end_date"`
	MaxUses      int             `json:"max_uses" db:"max_uses"`
	UsedCount    int             `json:"used_count" db:"used_count"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// IsApplicable reports whether the promotion may discount a quote at now.
// The window is inclusive of both calendar dates.
func (p *Promotion) IsApplicable(now time.Time) bool {
	if p == nil {
		return false
	}
	today := DateOnly(now)
	if today.Before(DateOnly(p.StartDate)) || today.After(DateOnly(p.EndDate)) {
		return false
	}
	return p.UsedCount < p.MaxUses
}
