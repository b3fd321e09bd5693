package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// QuoteInput carries everything a price quote depends on
type QuoteInput struct {
	NightlyPrice decimal.Decimal
	CleaningFee  decimal.Decimal
	ServiceFee   decimal.Decimal
	Nights       int
	Promotion    *models.Promotion
	// PromotionHeld marks a promotion the booking already redeemed; it
	// applies even once expired or fully used
	PromotionHeld bool
	Now           time.Time
	MinorUnits    int32
}

// QuoteBreakdown is the priced result of a stay
type QuoteBreakdown struct {
	Nights           int             `json:"nights"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PromotionApplied bool            `json:"promotion_applied"`
	PromotionID      *int64          `json:"promotion_id,omitempty"`
}

// Quote prices a stay. Cleaning and service fees are charged per night.
// The discount never takes the total below zero, and only the final
// amounts are rounded to the currency's minor unit.
func Quote(in QuoteInput) QuoteBreakdown {
	nights := decimal.NewFromInt(int64(in.Nights))
	base := in.NightlyPrice.Add(in.CleaningFee).Add(in.ServiceFee).Mul(nights)

	total := base
	applied := false
	if in.Promotion != nil && (in.PromotionHeld || in.Promotion.IsApplicable(in.Now)) {
		applied = true
		switch in.Promotion.DiscountType {
		case models.DiscountTypeFixed:
			total = base.Sub(in.Promotion.Amount)
		case models.DiscountTypePercentage:
			total = base.Sub(base.Mul(in.Promotion.Amount).Div(hundred))
		default:
			applied = false
		}
		if total.IsNegative() {
			total = decimal.Zero
		}
	}

	base = base.Round(in.MinorUnits)
	total = total.Round(in.MinorUnits)

	breakdown := QuoteBreakdown{
		Nights:           in.Nights,
		BaseAmount:       base,
		Discount:         base.Sub(total),
		TotalAmount:      total,
		PromotionApplied: applied,
	}
	if applied {
		id := in.Promotion.ID
		breakdown.PromotionID = &id
	}
	return breakdown
}
