package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
)

// HostLedgerRepository handles host balances. Every balance change is a
// single relative UPDATE so concurrent credits and debits never lose writes.
type HostLedgerRepository struct {
	db *sqlx.DB
}

// NewHostLedgerRepository creates a new host ledger repository
func NewHostLedgerRepository(db *sqlx.DB) *HostLedgerRepository {
	return &HostLedgerRepository{db: db}
}

const ledgerColumns = `host_id, available_balance, total_earnings, payout_account_id, payouts_enabled, updated_at`

// Get returns a host's ledger, nil when the host was never credited
func (r *HostLedgerRepository) Get(ctx context.Context, hostID uuid.UUID) (*models.HostLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM host_ledgers WHERE host_id = $1`

	var ledger models.HostLedger
	if err := conn(ctx, r.db).GetContext(ctx, &ledger, query, hostID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get host ledger: %w", err)
	}
	return &ledger, nil
}

// GetByAccountID returns the ledger linked to a provider account, nil when none
func (r *HostLedgerRepository) GetByAccountID(ctx context.Context, accountID string) (*models.HostLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM host_ledgers WHERE payout_account_id = $1`

	var ledger models.HostLedger
	if err := conn(ctx, r.db).GetContext(ctx, &ledger, query, accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get host ledger by account: %w", err)
	}
	return &ledger, nil
}

// Credit adds earnings to both balances, creating the ledger on first credit
func (r *HostLedgerRepository) Credit(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	query := `
		INSERT INTO host_ledgers (host_id, available_balance, total_earnings, payouts_enabled, updated_at)
		VALUES ($1, $2, $2, FALSE, NOW())
		ON CONFLICT (host_id) DO UPDATE
		SET available_balance = host_ledgers.available_balance + EXCLUDED.available_balance,
		    total_earnings = host_ledgers.total_earnings + EXCLUDED.total_earnings,
		    updated_at = NOW()`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, hostID, amount); err != nil {
		return fmt.Errorf("failed to credit host ledger: %w", err)
	}
	return nil
}

// Debit removes amount from the available balance. It returns false without
// changing anything when the balance does not cover the amount.
func (r *HostLedgerRepository) Debit(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE host_ledgers
		SET available_balance = available_balance - $2, updated_at = NOW()
		WHERE host_id = $1 AND available_balance >= $2`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, hostID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit host ledger: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// Restore returns a previously debited amount to the available balance
func (r *HostLedgerRepository) Restore(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE host_ledgers
		SET available_balance = available_balance + $2, updated_at = NOW()
		WHERE host_id = $1`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, hostID, amount); err != nil {
		return fmt.Errorf("failed to restore host balance: %w", err)
	}
	return nil
}

// ReverseEarnings takes refunded earnings back from both balances.
// The available balance may go negative when the host already withdrew.
func (r *HostLedgerRepository) ReverseEarnings(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE host_ledgers
		SET available_balance = available_balance - $2,
		    total_earnings = total_earnings - $2,
		    updated_at = NOW()
		WHERE host_id = $1`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, hostID, amount); err != nil {
		return fmt.Errorf("failed to reverse host earnings: %w", err)
	}
	return nil
}

// UpdateAccount links the provider account and records whether it can receive payouts
func (r *HostLedgerRepository) UpdateAccount(ctx context.Context, hostID uuid.UUID, accountID string, payoutsEnabled bool) error {
	query := `
		INSERT INTO host_ledgers (host_id, available_balance, total_earnings, payout_account_id, payouts_enabled, updated_at)
		VALUES ($1, 0, 0, $2, $3, NOW())
		ON CONFLICT (host_id) DO UPDATE
		SET payout_account_id = EXCLUDED.payout_account_id,
		    payouts_enabled = EXCLUDED.payouts_enabled,
		    updated_at = NOW()`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, hostID, accountID, payoutsEnabled); err != nil {
		return fmt.Errorf("failed to update payout account: %w", err)
	}
	return nil
}
