package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HostLedger holds a host's withdrawable and lifetime balances
type HostLedger struct {
	HostID           uuid.UUID       `json:"host_id" db:"host_id"`
	AvailableBalance decimal.Decimal `json:"available_balance" db:"available_balance"`
	TotalEarnings    decimal.Decimal `json:"total_earnings" db:"total_earnings"`
	PayoutAccountID  *string         `json:"payout_account_id,omitempty" db:"payout_account_id"`
	PayoutsEnabled   bool            `json:"payouts_enabled" db:"payouts_enabled"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// EmptyLedger is the balance of a host that has never been credited
func EmptyLedger(hostID uuid.UUID) *HostLedger {
	return &HostLedger{
		HostID:           hostID,
		AvailableBalance: decimal.Zero,
		TotalEarnings:    decimal.Zero,
	}
}

// PayoutMethod is how a payout leaves the platform
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodCard         PayoutMethod = "card"
)

// HostPayout is a request to move available balance to the host's account
type HostPayout struct {
	ID            int64           `json:"id" db:"id"`
	HostID        uuid.UUID       `json:"host_id" db:"host_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        PayoutStatus    `json:"status" db:"status"`
	PayoutMethod  PayoutMethod    `json:"payout_method" db:"payout_method"`
	TransactionID *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PayoutTransition is the outcome of applying a transfer event to a payout
type PayoutTransition struct {
	Payout  *HostPayout
	Changed bool
	// Compensation is credited back to the host when the payout failed
	Compensation decimal.Decimal
}

func unchanged(p *HostPayout) PayoutTransition {
	copied := *p
	return PayoutTransition{Payout: &copied, Compensation: decimal.Zero}
}

// MarkProcessing records that the provider created the transfer
func (p *HostPayout) MarkProcessing(transferID string, now time.Time) PayoutTransition {
	if p.Status != PayoutStatusRequested {
		return unchanged(p)
	}
	next := *p
	next.Status = PayoutStatusProcessing
	if transferID != "" {
		next.TransactionID = &transferID
	}
	next.UpdatedAt = now
	return PayoutTransition{Payout: &next, Changed: true, Compensation: decimal.Zero}
}

// MarkCompleted records that the transfer was paid out
func (p *HostPayout) MarkCompleted(transferID string, now time.Time) PayoutTransition {
	if p.Status.IsTerminal() {
		return unchanged(p)
	}
	next := *p
	next.Status = PayoutStatusCompleted
	if next.TransactionID == nil && transferID != "" {
		next.TransactionID = &transferID
	}
	next.ProcessedAt = &now
	next.UpdatedAt = now
	return PayoutTransition{Payout: &next, Changed: true, Compensation: decimal.Zero}
}

// MarkFailed records a failed transfer; the debited amount must be returned
func (p *HostPayout) MarkFailed(transferID, reason string, now time.Time) PayoutTransition {
	if p.Status.IsTerminal() {
		return unchanged(p)
	}
	next := *p
	next.Status = PayoutStatusFailed
	if next.TransactionID == nil && transferID != "" {
		next.TransactionID = &transferID
	}
	if reason != "" {
		next.Notes = &reason
	}
	next.ProcessedAt = &now
	next.UpdatedAt = now
	return PayoutTransition{Payout: &next, Changed: true, Compensation: p.Amount}
}
