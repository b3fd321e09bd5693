package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCalculateRefund(t *testing.T) {
	paid := decimal.NewFromInt(390)
	eighty := decimal.NewFromInt(80)

	tests := []struct {
		name         string
		tier         string
		days         int
		policy       *decimal.Decimal
		wantEligible bool
		wantAmount   string
		wantTier     models.PolicyTier
		wantFallback bool
	}{
		{name: "flexible one day out", tier: "flexible", days: 1, wantEligible: true, wantAmount: "390", wantTier: models.PolicyFlexible},
		{name: "flexible same day", tier: "Flexible", days: 0, wantAmount: "0", wantTier: models.PolicyFlexible},
		{name: "moderate at threshold", tier: "moderate", days: 5, wantEligible: true, wantAmount: "390", wantTier: models.PolicyModerate},
		{name: "moderate with policy percent", tier: "MODERATE", days: 6, policy: &eighty, wantEligible: true, wantAmount: "312", wantTier: models.PolicyModerate},
		{name: "moderate too late", tier: "moderate", days: 4, wantAmount: "0", wantTier: models.PolicyModerate},
		{name: "strict default half", tier: "strict", days: 7, wantEligible: true, wantAmount: "195", wantTier: models.PolicyStrict},
		{name: "strict with policy percent", tier: "strict", days: 10, policy: &eighty, wantEligible: true, wantAmount: "312", wantTier: models.PolicyStrict},
		{name: "strict too late", tier: "strict", days: 6, wantAmount: "0", wantTier: models.PolicyStrict},
		{name: "non refundable", tier: "non-refundable", days: 30, wantAmount: "0", wantTier: models.PolicyNonRefundable},
		{name: "unknown tier falls back to flexible", tier: "lenient", days: 2, policy: &eighty, wantEligible: true, wantAmount: "390", wantTier: models.PolicyFlexible, wantFallback: true},
		{name: "missing tier falls back to flexible", tier: "", days: 3, wantEligible: true, wantAmount: "390", wantTier: models.PolicyFlexible, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := CalculateRefund(tt.tier, tt.days, paid, tt.policy, 2)

			assert.Equal(t, tt.wantEligible, q.Eligible)
			assert.True(t, q.Amount.Equal(decimal.RequireFromString(tt.wantAmount)), "amount %s, want %s", q.Amount, tt.wantAmount)
			assert.Equal(t, tt.wantTier, q.Tier)
			assert.Equal(t, tt.wantFallback, q.FellBack)
			assert.Equal(t, tt.days, q.DaysUntilCheckIn)
		})
	}
}

func TestCalculateRefund_ClampsPolicyPercent(t *testing.T) {
	over := decimal.NewFromInt(140)
	q := CalculateRefund("moderate", 9, decimal.NewFromInt(200), &over, 2)

	assert.True(t, q.Eligible)
	assert.True(t, q.Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, q.Percent.Equal(decimal.NewFromInt(100)))
}

func TestCalculateRefund_NothingPaid(t *testing.T) {
	q := CalculateRefund("flexible", 10, decimal.Zero, nil, 2)

	assert.True(t, q.Eligible)
	assert.True(t, q.Amount.IsZero())
}

func TestFullRefund(t *testing.T) {
	q := FullRefund(decimal.RequireFromString("250.50"), 0)

	assert.True(t, q.Eligible)
	assert.True(t, q.Amount.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, q.Percent.Equal(decimal.NewFromInt(100)))
}
