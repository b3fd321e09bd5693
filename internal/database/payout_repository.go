package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// PayoutRepository handles host payout requests
type PayoutRepository struct {
	db *sqlx.DB
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `
	id, host_id, amount, status, payout_method, transaction_id, notes,
	processed_at, created_at, updated_at`

// Create inserts a payout and fills its generated fields
func (r *PayoutRepository) Create(ctx context.Context, p *models.HostPayout) error {
	query := `
		INSERT INTO host_payouts (host_id, amount, status, payout_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.HostID, p.Amount, p.Status, p.PayoutMethod, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

// Update persists the status fields of a payout snapshot
func (r *PayoutRepository) Update(ctx context.Context, p *models.HostPayout) error {
	query := `
		UPDATE host_payouts SET
			status = $2, transaction_id = $3, notes = $4,
			processed_at = $5, updated_at = NOW()
		WHERE id = $1`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Status, p.TransactionID, p.Notes, p.ProcessedAt); err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	return nil
}

// GetByID returns a payout, nil when it does not exist
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*models.HostPayout, error) {
	return r.get(ctx, `SELECT `+payoutColumns+` FROM host_payouts WHERE id = $1`, id)
}

// GetForUpdate returns a payout holding its row lock
func (r *PayoutRepository) GetForUpdate(ctx context.Context, id int64) (*models.HostPayout, error) {
	return r.get(ctx, `SELECT `+payoutColumns+` FROM host_payouts WHERE id = $1 FOR UPDATE`, id)
}

func (r *PayoutRepository) get(ctx context.Context, query string, id int64) (*models.HostPayout, error) {
	var payout models.HostPayout
	if err := conn(ctx, r.db).GetContext(ctx, &payout, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &payout, nil
}

// ListByHost returns a host's payouts, newest first
func (r *PayoutRepository) ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.HostPayout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM host_payouts
		WHERE host_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var payouts []models.HostPayout
	if err := conn(ctx, r.db).SelectContext(ctx, &payouts, query, hostID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}

// ListByHostBetween returns a host's payouts created in [from, to)
func (r *PayoutRepository) ListByHostBetween(ctx context.Context, hostID uuid.UUID, from, to time.Time) ([]models.HostPayout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM host_payouts
		WHERE host_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id`

	var payouts []models.HostPayout
	if err := conn(ctx, r.db).SelectContext(ctx, &payouts, query, hostID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list payouts for statement: %w", err)
	}
	return payouts, nil
}

// ListRequested returns payouts still waiting for a transfer, oldest first
func (r *PayoutRepository) ListRequested(ctx context.Context, limit int) ([]models.HostPayout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM host_payouts
		WHERE status = 'Requested'
		ORDER BY created_at, id
		LIMIT $1`

	var payouts []models.HostPayout
	if err := conn(ctx, r.db).SelectContext(ctx, &payouts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list requested payouts: %w", err)
	}
	return payouts, nil
}
