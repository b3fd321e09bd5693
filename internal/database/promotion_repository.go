package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// PromotionRepository handles promotion codes and their usage counters
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// GetByID returns a promotion, nil when it does not exist
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (*models.Promotion, error) {
	query := `
		SELECT id, code, discount_type, amount, start_date, end_date, max_uses, used_count, created_at
		FROM promotions
		WHERE id = $1`

	var promo models.Promotion
	if err := conn(ctx, r.db).GetContext(ctx, &promo, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}
	return &promo, nil
}

// Redeem consumes one use of a promotion. It returns false when the
// promotion is already exhausted, leaving used_count untouched.
func (r *PromotionRepository) Redeem(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE promotions
		SET used_count = used_count + 1
		WHERE id = $1 AND used_count < max_uses`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to redeem promotion: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
