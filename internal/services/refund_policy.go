package services

import (
	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
)

// RefundQuote is the outcome of applying a cancellation policy
type RefundQuote struct {
	Eligible         bool              `json:"eligible"`
	Amount           decimal.Decimal   `json:"amount"`
	Percent          decimal.Decimal   `json:"percent"`
	Tier             models.PolicyTier `json:"tier"`
	DaysUntilCheckIn int               `json:"days_until_check_in"`
	// FellBack is set when the property carried no known tier and the
	// flexible policy was applied instead
	FellBack bool `json:"fell_back,omitempty"`
}

type tierRule struct {
	minDays        int
	defaultPercent decimal.Decimal
	usesPolicy     bool
}

var tierRules = map[models.PolicyTier]tierRule{
	models.PolicyFlexible: {minDays: 1, defaultPercent: hundred},
	models.PolicyModerate: {minDays: 5, defaultPercent: hundred, usesPolicy: true},
	models.PolicyStrict:   {minDays: 7, defaultPercent: decimal.NewFromInt(50), usesPolicy: true},
}

// CalculateRefund applies the cancellation tier to what the guest has paid.
// An unknown or empty tier is refunded as flexible and reported through FellBack.
func CalculateRefund(tier string, daysUntilCheckIn int, amountPaid decimal.Decimal, policyPercent *decimal.Decimal, minorUnits int32) RefundQuote {
	parsed, err := models.ParsePolicyTier(tier)
	fellBack := err != nil
	if fellBack {
		parsed = models.PolicyFlexible
	}

	quote := RefundQuote{
		Tier:             parsed,
		DaysUntilCheckIn: daysUntilCheckIn,
		FellBack:         fellBack,
		Amount:           decimal.Zero,
		Percent:          decimal.Zero,
	}

	rule, ok := tierRules[parsed]
	if !ok || daysUntilCheckIn < rule.minDays {
		return quote
	}

	percent := rule.defaultPercent
	if rule.usesPolicy && !fellBack && policyPercent != nil {
		percent = decimal.Max(decimal.Zero, decimal.Min(hundred, *policyPercent))
	}

	quote.Eligible = true
	quote.Percent = percent
	quote.Amount = amountPaid.Mul(percent).Div(hundred).Round(minorUnits)
	return quote
}

// FullRefund refunds everything paid, used when the host cancels
func FullRefund(amountPaid decimal.Decimal, daysUntilCheckIn int) RefundQuote {
	return RefundQuote{
		Eligible:         true,
		Amount:           amountPaid,
		Percent:          hundred,
		Tier:             models.PolicyFlexible,
		DaysUntilCheckIn: daysUntilCheckIn,
	}
}
