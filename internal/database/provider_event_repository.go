package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// ProviderEventRepository remembers which provider webhook events were applied
type ProviderEventRepository struct {
	db *sqlx.DB
}

// NewProviderEventRepository creates a new provider event repository
func NewProviderEventRepository(db *sqlx.DB) *ProviderEventRepository {
	return &ProviderEventRepository{db: db}
}

// Record claims an event id. It returns false when the event was already
// recorded. Called inside the transaction that applies the event, so a
// failed application releases the claim.
func (r *ProviderEventRepository) Record(ctx context.Context, eventID string, eventType models.ProviderEventType) (bool, error) {
	query := `
		INSERT INTO provider_events (id, type, received_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, eventID, string(eventType))
	if err != nil {
		return false, fmt.Errorf("failed to record provider event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
